// Package wad 提供以 1e18 为单位（WAD）的定点整数运算。
//
// 所有值都是 *big.Int，语义上限定在 int256 范围 [-2^255, 2^255-1] 内。
// 带校验的乘除先在 512 位宽度上完成乘法（holiman/uint256 的 MulDivOverflow），
// 再收窄回 int256，任何越界都返回 ErrArithmeticOverflow，绝不静默回绕。
// 舍入一律为向零截断。
package wad

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
)

var (
	// ErrArithmeticOverflow 操作数或结果超出 int256 表示范围
	ErrArithmeticOverflow = errors.New("wad: arithmetic overflow")
	// ErrDivisionByZero 除数为 0
	ErrDivisionByZero = errors.New("wad: division by zero")
)

// Decimals WAD 的小数位数
const Decimals = 18

var (
	// WAD 定点单位 1e18。只读，不要修改。
	WAD = math.BigPow(10, Decimals)
	// MaxInt256 2^255-1
	MaxInt256 = new(big.Int).Rsh(math.MaxBig256, 1)
	// MinInt256 -2^255
	MinInt256 = new(big.Int).Neg(new(big.Int).Add(MaxInt256, big.NewInt(1)))
)

// New 把整数 n 转成定点值 n·WAD。
func New(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), WAD)
}

// NewPow10 返回 10^exp·WAD，用于表达 1e37 这类超出 int64 的边界。
func NewPow10(exp int64) *big.Int {
	return math.BigPow(10, exp+Decimals)
}

// InInt256Range 判断 v 是否落在 int256 范围内。nil 视为越界。
func InInt256Range(v *big.Int) bool {
	if v == nil {
		return false
	}
	return v.Cmp(MinInt256) >= 0 && v.Cmp(MaxInt256) <= 0
}

// magnitude 返回 |v| 的 uint256 表示。调用方保证 v 在 int256 范围内，|MinInt256| = 2^255 也放得下。
func magnitude(v *big.Int) *uint256.Int {
	u, _ := uint256.FromBig(new(big.Int).Abs(v))
	return u
}

// MulDiv 计算 a·b/c（向零截断），乘积保留完整 512 位后再做除法。
//
// c = 0 返回 ErrDivisionByZero；任一操作数或最终结果超出 int256 返回 ErrArithmeticOverflow。
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if !InInt256Range(a) || !InInt256Range(b) || !InInt256Range(c) {
		return nil, ErrArithmeticOverflow
	}
	if c.Sign() == 0 {
		return nil, ErrDivisionByZero
	}

	q, overflow := new(uint256.Int).MulDivOverflow(magnitude(a), magnitude(b), magnitude(c))
	if overflow {
		return nil, ErrArithmeticOverflow
	}

	out := q.ToBig()
	negative := (a.Sign() < 0) != (b.Sign() < 0)
	if c.Sign() < 0 {
		negative = !negative
	}
	if negative {
		out.Neg(out)
	}
	if !InInt256Range(out) {
		return nil, ErrArithmeticOverflow
	}
	return out, nil
}

// MulWad 计算 a·b/WAD（带校验）。
//
// a·b 在 512 位里计算，本身不会溢出；只有除以 WAD 之后的结果超出 int256
// 才返回 ErrArithmeticOverflow。因此 a·b 超过 int256 但商仍在范围内时照常返回。
func MulWad(a, b *big.Int) (*big.Int, error) {
	return MulDiv(a, b, WAD)
}

// DivWad 计算 a·WAD/b（带校验）。b = 0 返回 ErrDivisionByZero。
func DivWad(a, b *big.Int) (*big.Int, error) {
	if b != nil && b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	return MulDiv(a, WAD, b)
}

// RawMulWad 不做范围校验的 a·b/WAD。
// 只能用在定义域已经保证不越界的路径上；标准化那一步不能用它。
func RawMulWad(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, b)
	return p.Quo(p, WAD)
}

// RawDivWad 不做范围校验的 a·WAD/b。调用方保证 b != 0。
func RawDivWad(a, b *big.Int) *big.Int {
	p := new(big.Int).Mul(a, WAD)
	return p.Quo(p, b)
}
