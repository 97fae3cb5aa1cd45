// Package gaussian 用纯整数定点运算计算正态分布 CDF 及其互补项。
//
// 求值流程（无状态、可并发调用）：
//
//	Validate → Standardize → RationalM, ExpNegHalfSquare → Erfc → NormalCDF / GaussianCDF
//
// 输入输出都是 WAD（1e18）定点的 *big.Int，函数从不修改传入的参数。
// 定义域：0 < σ ≤ 1e37，|μ| ≤ 1e38，|x| ≤ 1e41（实数单位），越界直接返回
// ErrInvalidSigma / ErrInvalidMu / ErrInvalidX，不做任何算术。
// 绝对误差 < 1e-8（实测在 1e-17 量级）。
//
// 示例：
//
//	cdf, err := gaussian.NormalCDF(wad.New(3), wad.New(0), wad.New(1))
//	// cdf ≈ 0.998650101968369906 · 1e18
package gaussian
