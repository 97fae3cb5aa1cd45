package gaussian

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/betbot/gausscdf/pkg/wad"
)

const expMaxTerms = 32

var (
	// exp 的饱和点：低于 -41 结果不足 1 wei，高于 130 接近 int256 上限
	ExpMinArg = wad.New(-41)
	ExpMaxArg = wad.New(130)

	// 中间计算用 1e36 定点，比 WAD 多 18 位
	scale36 = math.BigPow(10, 36)
	// ln2·1e36（截断）
	ln2Scaled, _ = new(big.Int).SetString("693147180559945309417232121458176568", 10)
	halfLn2      = new(big.Int).Rsh(ln2Scaled, 1)
)

// ExpWad 计算 e^x，x 与结果均为 WAD 定点，结果向零截断，误差不超过 1 wei。
//
// 算法：
//  1. 饱和：x < -41 返回 0，x > 130 返回 int256 最大值
//  2. 区间约简（1e36 定点）：k = round(x/ln2)，r = x - k·ln2，|r| ≤ ln2/2
//  3. Taylor 级数 term_i = term_{i-1}·r/i，最多 32 项，某项截断为 0 即停止
//  4. 结果乘以 2^k 并收窄回 WAD
func ExpWad(x *big.Int) *big.Int {
	if x.Cmp(ExpMinArg) < 0 {
		return new(big.Int)
	}
	if x.Cmp(ExpMaxArg) > 0 {
		return new(big.Int).Set(wad.MaxInt256)
	}

	xe := new(big.Int).Mul(x, wad.WAD)

	k := new(big.Int).Set(xe)
	if xe.Sign() >= 0 {
		k.Add(k, halfLn2)
	} else {
		k.Sub(k, halfLn2)
	}
	k.Quo(k, ln2Scaled)

	r := new(big.Int).Mul(k, ln2Scaled)
	r.Sub(xe, r)

	sum := new(big.Int).Set(scale36)
	term := new(big.Int).Set(scale36)
	div := new(big.Int)
	for i := int64(1); i <= expMaxTerms; i++ {
		term.Mul(term, r)
		term.Quo(term, div.Mul(scale36, big.NewInt(i)))
		if term.Sign() == 0 {
			break
		}
		sum.Add(sum, term)
	}

	// |x| ≤ 130 时 k ∈ [-60, 188]
	shift := k.Int64()
	if shift >= 0 {
		sum.Lsh(sum, uint(shift))
		return sum.Quo(sum, wad.WAD)
	}
	return sum.Quo(sum, new(big.Int).Lsh(wad.WAD, uint(-shift)))
}

// ExpNegHalfSquare 计算 exp(-z²/2)。
func ExpNegHalfSquare(z *big.Int) (*big.Int, error) {
	z2, err := wad.MulWad(z, z)
	if err != nil {
		return nil, err
	}
	arg := z2.Quo(z2, big.NewInt(2))
	return ExpWad(arg.Neg(arg)), nil
}
