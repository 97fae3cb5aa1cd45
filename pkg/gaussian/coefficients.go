package gaussian

import (
	"math/big"

	"github.com/betbot/gausscdf/pkg/wad"
)

// Dia 乘积形式的系数，WAD 定点，四舍五入自 50 位精度的拟合结果。
//
//	M(z) = (1/π) / (z + B0) · Π_{i=0..4} (z² + C2[i]·z + C1[i]) / (z² + B2[i]·z + B1[i])
//
// M(z)·√(2π)·exp(-z²/2) = 2·Q(z)，在 z ≥ 0 上相对误差约 1e-17。
// 分子、分母的二次因子都只有复根，z ≥ 0 时恒为正。
var (
	B0 = mustFixed("2839776896484797319")

	B1 = [stages]*big.Int{
		mustFixed("8489082082513547992"),
		mustFixed("9844408264992462525"),
		mustFixed("12397456208665743296"),
		mustFixed("16714575522272534858"),
		mustFixed("24170096632711076173"),
	}
	B2 = [stages]*big.Int{
		mustFixed("5642701972953974817"),
		mustFixed("5533432662839247692"),
		mustFixed("5354862500159808959"),
		mustFixed("5108919146507855181"),
		mustFixed("4785071422236928181"),
	}

	C1 = [stages]*big.Int{
		mustFixed("11622460123709070868"),
		mustFixed("17102986188380912434"),
		mustFixed("17182386808029587480"),
		mustFixed("18027457311893775055"),
		mustFixed("24194288421835191396"),
	}
	C2 = [stages]*big.Int{
		mustFixed("3836631227155486561"),
		mustFixed("8122261698925142092"),
		mustFixed("7049616684116219571"),
		mustFixed("5474810752903384667"),
		mustFixed("4781444238082321704"),
	}

	// SqrtTwoPi √(2π)·WAD
	SqrtTwoPi = mustFixed("2506628274631000502")
	// InvPi 1/π·WAD，分子的初值
	InvPi = mustFixed("318309886183790672")
)

const stages = 5

func mustFixed(s string) *big.Int {
	v, err := wad.ParseFixed(s)
	if err != nil {
		panic(err)
	}
	return v
}
