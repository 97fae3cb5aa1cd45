package gaussian

import (
	"math/big"

	"github.com/betbot/gausscdf/pkg/wad"
)

// RationalM 计算 Dia 有理逼近 M(z)，z 为 WAD 定点且必须 ≥ 0。
//
// 五个阶段按 0..4 顺序依次累乘分子和分母，顺序不能调换：
// 每一步的截断误差会沿着连乘传递。所有乘法都经过 512 位中间值，
// 不需要对分子分母做减半缩放；z 大到连乘超出 int256 时返回 ErrArithmeticOverflow。
func RationalM(z *big.Int) (*big.Int, error) {
	if z == nil || z.Sign() < 0 {
		return nil, ErrNegativeZ
	}
	z2, err := wad.MulWad(z, z)
	if err != nil {
		return nil, err
	}

	numerator := new(big.Int).Set(InvPi)
	denominator := new(big.Int).Add(z, B0)
	for i := 0; i < stages; i++ {
		// z² + C2·z + C1 与 z² 同阶，z² 已通过校验，这里用 raw 即可
		num := new(big.Int).Add(z2, wad.RawMulWad(C2[i], z))
		num.Add(num, C1[i])
		if numerator, err = wad.MulWad(numerator, num); err != nil {
			return nil, err
		}

		den := new(big.Int).Add(z2, wad.RawMulWad(B2[i], z))
		den.Add(den, B1[i])
		if denominator, err = wad.MulWad(denominator, den); err != nil {
			return nil, err
		}
	}
	return wad.DivWad(numerator, denominator)
}
