package gaussian

import (
	"errors"
	"math/big"

	"github.com/betbot/gausscdf/pkg/wad"
)

var (
	// ErrInvalidSigma σ ≤ 0 或 σ > 1e37
	ErrInvalidSigma = errors.New("gaussian: invalid sigma")
	// ErrInvalidMu μ 超出 [-1e38, 1e38]
	ErrInvalidMu = errors.New("gaussian: invalid mu")
	// ErrInvalidX x 超出 [-1e41, 1e41]
	ErrInvalidX = errors.New("gaussian: invalid x")
	// ErrNegativeZ 有理逼近只在 z ≥ 0 上定义，负侧由调用方镜像
	ErrNegativeZ = errors.New("gaussian: negative standardized variable")

	// 算术错误直接沿用 wad 包的哨兵，调用方用 errors.Is 判断即可
	ErrArithmeticOverflow = wad.ErrArithmeticOverflow
	ErrDivisionByZero     = wad.ErrDivisionByZero
)

// 定义域边界（WAD 定点）
var (
	MaxSigma = wad.NewPow10(37)
	MaxMu    = wad.NewPow10(38)
	MinMu    = new(big.Int).Neg(MaxMu)
	MaxX     = wad.NewPow10(41)
	MinX     = new(big.Int).Neg(MaxX)
)

// Params 一次求值的输入 (x, μ, σ)，均为 WAD 定点。
type Params struct {
	X     *big.Int
	Mu    *big.Int
	Sigma *big.Int
}

// Validate 依次检查 σ、μ、x，返回第一个违反的约束。
// 只做比较，不做任何算术。
func Validate(x, mu, sigma *big.Int) error {
	if sigma == nil || sigma.Sign() <= 0 || sigma.Cmp(MaxSigma) > 0 {
		return ErrInvalidSigma
	}
	if mu == nil || mu.Cmp(MinMu) < 0 || mu.Cmp(MaxMu) > 0 {
		return ErrInvalidMu
	}
	if x == nil || x.Cmp(MinX) < 0 || x.Cmp(MaxX) > 0 {
		return ErrInvalidX
	}
	return nil
}

// Validate 校验参数。
func (p Params) Validate() error {
	return Validate(p.X, p.Mu, p.Sigma)
}
