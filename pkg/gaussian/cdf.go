package gaussian

import (
	"math/big"

	"github.com/betbot/gausscdf/pkg/wad"
)

// TailSigmas |x-μ| ≥ 40σ 时直接饱和，不再标准化。
// 此时 exp(-z²/2) 早已低于 1 wei，同时避开 σ 极小时 z 超出 int256。
const TailSigmas = 40

var (
	tailSigmas = big.NewInt(TailSigmas)
	two        = big.NewInt(2)
	twoWad     = new(big.Int).Mul(wad.WAD, two)
)

// Result 一次求值的完整输出。
type Result struct {
	// Z 标准化变量 |x-μ|/σ（WAD）；饱和时为 nil
	Z *big.Int
	// Saturated 是否落在 40σ 之外
	Saturated bool
	// Erfc 互补项 erfc((x-μ)/(σ√2))，范围 [0, 2·WAD]
	Erfc *big.Int
	// CDF 正态分布函数值，范围 [0, WAD]
	CDF *big.Int
}

// Standardize 计算 z = (x-μ)·WAD/σ。
//
// x、μ 的量级可达 1e59（WAD 定点），(x-μ)·WAD 约 1e77，已超过 int256。
// 这里用一次 512 位的 MulDiv 完成乘除，不能拆成两次窄运算。
func Standardize(x, mu, sigma *big.Int) (*big.Int, error) {
	return wad.MulDiv(new(big.Int).Sub(x, mu), wad.WAD, sigma)
}

// Erfc 计算 z ≥ 0 时的互补项 √(2π)·M(z)·exp(-z²/2)，截到 [0, WAD]。
//
// 指数项为 0 时不再计算 M(z)。z = 0 附近逼近值会比 WAD 多出十几 wei，
// 截断保证均值两侧 CDF 单调。
func Erfc(z *big.Int) (*big.Int, error) {
	if z == nil || z.Sign() < 0 {
		return nil, ErrNegativeZ
	}
	e, err := ExpNegHalfSquare(z)
	if err != nil {
		return nil, err
	}
	if e.Sign() == 0 {
		return e, nil
	}

	m, err := RationalM(z)
	if err != nil {
		return nil, err
	}
	scaled, err := wad.MulWad(SqrtTwoPi, m)
	if err != nil {
		return nil, err
	}
	out, err := wad.MulWad(scaled, e)
	if err != nil {
		return nil, err
	}
	if out.Cmp(wad.WAD) > 0 {
		out.Set(wad.WAD)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out, nil
}

// Evaluate 校验参数后只做一次逼近，同时给出互补项和 CDF。
//
// x < μ 时不递归：直接在 |x-μ| 上求值再镜像，
// 结果与 WAD - NormalCDF(2μ-x, μ, σ) 逐位相同。
func Evaluate(p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	mirror := p.X.Cmp(p.Mu) < 0
	d := new(big.Int).Sub(p.X, p.Mu)
	d.Abs(d)

	var (
		res Result
		e   *big.Int
	)
	if d.Cmp(new(big.Int).Mul(p.Sigma, tailSigmas)) >= 0 {
		res.Saturated = true
		e = new(big.Int)
	} else {
		z, err := Standardize(p.X, p.Mu, p.Sigma)
		if err != nil {
			return Result{}, err
		}
		// 向零截断关于 0 对称，|trunc(v)| = trunc(|v|)
		z.Abs(z)
		if e, err = Erfc(z); err != nil {
			return Result{}, err
		}
		res.Z = z
	}

	half := new(big.Int).Quo(e, two)
	if mirror {
		res.Erfc = new(big.Int).Sub(twoWad, e)
		res.CDF = half
	} else {
		res.Erfc = e
		res.CDF = new(big.Int).Sub(wad.WAD, half)
	}
	return res, nil
}

// GaussianCDF 返回互补项 erfc((x-μ)/(σ√2))（WAD 定点），x ≥ μ 时落在 [0, WAD]，
// x < μ 时为 2·WAD 减去镜像点的值。
func GaussianCDF(x, mu, sigma *big.Int) (*big.Int, error) {
	res, err := Evaluate(Params{X: x, Mu: mu, Sigma: sigma})
	if err != nil {
		return nil, err
	}
	return res.Erfc, nil
}

// NormalCDF 返回正态分布 N(μ, σ²) 在 x 处的 CDF（WAD 定点，范围 [0, WAD]）。
func NormalCDF(x, mu, sigma *big.Int) (*big.Int, error) {
	res, err := Evaluate(Params{X: x, Mu: mu, Sigma: sigma})
	if err != nil {
		return nil, err
	}
	return res.CDF, nil
}
