package wad

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseFixed(t *testing.T) {
	cases := []struct {
		in   string
		want *big.Int
	}{
		{"0", big.NewInt(0)},
		{"  -3000000000000000000 ", New(-3)},
		{"+42", big.NewInt(42)},
		{"0x10", big.NewInt(16)},
		{MaxInt256.String(), MaxInt256},
		{MinInt256.String(), MinInt256},
	}
	for _, c := range cases {
		got, err := ParseFixed(c.in)
		if err != nil {
			t.Fatalf("ParseFixed(%q) error: %v", c.in, err)
		}
		if got.Cmp(c.want) != 0 {
			t.Fatalf("ParseFixed(%q) got=%s want=%s", c.in, got, c.want)
		}
	}
}

func TestParseFixed_Invalid(t *testing.T) {
	for _, in := range []string{"", "  ", "-", "+", "--5", "+-5", "1.5", "abc", "1e18", "1,000"} {
		if _, err := ParseFixed(in); !errors.Is(err, ErrInvalidLiteral) {
			t.Fatalf("ParseFixed(%q) err=%v want ErrInvalidLiteral", in, err)
		}
	}
}

func TestParseFixed_OutOfRange(t *testing.T) {
	above := new(big.Int).Add(MaxInt256, big.NewInt(1))
	below := new(big.Int).Sub(MinInt256, big.NewInt(1))
	for _, in := range []string{above.String(), below.String()} {
		if _, err := ParseFixed(in); !errors.Is(err, ErrArithmeticOverflow) {
			t.Fatalf("ParseFixed(%s) err=%v want ErrArithmeticOverflow", in, err)
		}
	}
}

func TestFromString(t *testing.T) {
	cases := []struct {
		in   string
		want *big.Int
	}{
		{"0.5", big.NewInt(500000000000000000)},
		{"-2.5", big.NewInt(-2500000000000000000)},
		{"1e37", NewPow10(37)},
		{" 3 ", New(3)},
		// 1.5 wei 四舍五入到 2
		{"0.0000000000000000015", big.NewInt(2)},
	}
	for _, c := range cases {
		got, err := FromString(c.in)
		if err != nil {
			t.Fatalf("FromString(%q) error: %v", c.in, err)
		}
		if got.Cmp(c.want) != 0 {
			t.Fatalf("FromString(%q) got=%s want=%s", c.in, got, c.want)
		}
	}

	if _, err := FromString("abc"); !errors.Is(err, ErrInvalidLiteral) {
		t.Fatalf("FromString(abc) err=%v want ErrInvalidLiteral", err)
	}
	if _, err := FromString("1e60"); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("FromString(1e60) err=%v want ErrArithmeticOverflow", err)
	}
}

func TestFromString_HugeExponent(t *testing.T) {
	cases := []struct {
		in   string
		want *big.Int // nil 表示期望溢出
	}{
		{"1e50000000", nil},
		{"-1e50000000", nil},
		{"1e59", nil},
		{"1e-50000000", big.NewInt(0)},
		{"-1e-50000000", big.NewInt(0)},
		{"0e50000000", big.NewInt(0)},
		// 0.04 wei 舍为 0，0.5 wei 舍入为 1
		{"4e-20", big.NewInt(0)},
		{"5e-19", big.NewInt(1)},
		// int256 附近仍按精确值判断
		{"57896044618658097711785492504343953926634992332820282019728.792003956564819967", MaxInt256},
		{"57896044618658097711785492504343953926634992332820282019728.792003956564819968", nil},
	}
	for _, c := range cases {
		start := time.Now()
		got, err := FromString(c.in)
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Fatalf("FromString(%q) took %s", c.in, elapsed)
		}
		if c.want == nil {
			if !errors.Is(err, ErrArithmeticOverflow) {
				t.Fatalf("FromString(%q) err=%v want ErrArithmeticOverflow", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("FromString(%q) error: %v", c.in, err)
		}
		if got.Cmp(c.want) != 0 {
			t.Fatalf("FromString(%q) got=%s want=%s", c.in, got, c.want)
		}
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	v := big.NewInt(1)
	if got := ToDecimal(v).String(); got != "0.000000000000000001" {
		t.Fatalf("ToDecimal got=%s", got)
	}
	back, err := FromDecimal(decimal.RequireFromString("0.000000000000000001"))
	if err != nil {
		t.Fatalf("FromDecimal error: %v", err)
	}
	if back.Cmp(v) != 0 {
		t.Fatalf("FromDecimal got=%s want=1", back)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(New(3)); got != "3.000000000000000000" {
		t.Fatalf("Format got=%s", got)
	}
	if got := Format(big.NewInt(-500000000000000000)); got != "-0.500000000000000000" {
		t.Fatalf("Format got=%s", got)
	}
	if got := Format(nil); got != "<nil>" {
		t.Fatalf("Format(nil) got=%s", got)
	}
}
