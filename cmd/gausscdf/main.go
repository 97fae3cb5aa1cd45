// gausscdf 在命令行计算一次正态分布 CDF。
//
//	gausscdf -x 3 -mu 0 -sigma 1
//	gausscdf -raw -x 3000000000000000000 -mu 0 -sigma 1000000000000000000
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"

	"github.com/betbot/gausscdf/pkg/gaussian"
	"github.com/betbot/gausscdf/pkg/wad"
)

func main() {
	var (
		x     = flag.String("x", "0", "x")
		mu    = flag.String("mu", "0", "均值 μ")
		sigma = flag.String("sigma", "1", "标准差 σ")
		raw   = flag.Bool("raw", false, "输入是 WAD 定点整数字面量，而不是人类单位的小数")
	)
	flag.Parse()

	if err := run(*x, *mu, *sigma, *raw); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, wad.ErrInvalidLiteral) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func parse(s string, raw bool) (*big.Int, error) {
	if raw {
		return wad.ParseFixed(s)
	}
	return wad.FromString(s)
}

func run(xs, mus, sigmas string, raw bool) error {
	x, err := parse(xs, raw)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	mu, err := parse(mus, raw)
	if err != nil {
		return fmt.Errorf("mu: %w", err)
	}
	sigma, err := parse(sigmas, raw)
	if err != nil {
		return fmt.Errorf("sigma: %w", err)
	}

	res, err := gaussian.Evaluate(gaussian.Params{X: x, Mu: mu, Sigma: sigma})
	if err != nil {
		return err
	}
	if res.Saturated {
		fmt.Println("z     saturated (|x-μ| ≥ 40σ)")
	} else {
		fmt.Printf("z     %s (%s)\n", res.Z, wad.Format(res.Z))
	}
	fmt.Printf("erfc  %s (%s)\n", res.Erfc, wad.Format(res.Erfc))
	fmt.Printf("cdf   %s (%s)\n", res.CDF, wad.Format(res.CDF))
	return nil
}
