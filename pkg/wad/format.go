package wad

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"
)

// ErrInvalidLiteral 整数字面量无法解析
var ErrInvalidLiteral = errors.New("wad: invalid integer literal")

// ParseFixed 解析定点整数字面量（已经乘过 1e18 的原始整数）。
//
// 支持可选的 +/- 号，十进制或 0x 前缀十六进制；结果必须落在 int256 范围内。
// 例如 "-3000000000000000000" 表示 -3.0。
func ParseFixed(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidLiteral)
	}

	negative := false
	body := s
	switch body[0] {
	case '-':
		negative = true
		body = body[1:]
	case '+':
		body = body[1:]
	}
	// ParseBig256("") 返回 0，符号后面必须还有数字
	if body == "" || body[0] == '-' || body[0] == '+' {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}

	v, ok := math.ParseBig256(body)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}
	if negative {
		v.Neg(v)
	}
	if !InInt256Range(v) {
		return nil, fmt.Errorf("%w: %q", ErrArithmeticOverflow, s)
	}
	return v, nil
}

// ToDecimal 把定点值转成人类单位的 decimal（v / 1e18，无精度损失）。
func ToDecimal(v *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v, -Decimals)
}

// int256 最大值有 77 位十进制数字
const maxInt256Digits = 77

// FromDecimal 把人类单位的 decimal 转成定点值，四舍五入到最近的 wei。
//
// 先只看系数位数和指数估算量级：太大直接返回 ErrArithmeticOverflow，
// 不足 0.1 wei 直接返回 0，不会为 "1e50000000" 这类输入构造 10^exp。
func FromDecimal(d decimal.Decimal) (*big.Int, error) {
	if d.IsZero() {
		return new(big.Int), nil
	}
	// |值| ∈ [10^(mag-1), 10^mag) wei
	mag := int64(d.NumDigits()) + int64(d.Exponent()) + Decimals
	if mag-1 >= maxInt256Digits {
		return nil, ErrArithmeticOverflow
	}
	if mag < 0 {
		return new(big.Int), nil
	}
	v := d.Shift(Decimals).Round(0).BigInt()
	if !InInt256Range(v) {
		return nil, ErrArithmeticOverflow
	}
	return v, nil
}

// FromString 解析人类单位的十进制字符串，例如 "0.5"、"-3"、"1e37"。
func FromString(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLiteral, s)
	}
	return FromDecimal(d)
}

// Format 以人类单位输出定点值，保留完整的 18 位小数。
func Format(v *big.Int) string {
	if v == nil {
		return "<nil>"
	}
	return ToDecimal(v).StringFixed(Decimals)
}
