package gaussian_test

import (
	"math/big"
	"testing"

	"github.com/betbot/gausscdf/pkg/gaussian"
	"github.com/betbot/gausscdf/pkg/vectors"
)

// 文档给出的绝对误差 1e-8，换算成 wei
var tolerance = big.NewInt(10_000_000_000)

func TestNormalCDF_OracleVectors(t *testing.T) {
	recs, err := vectors.ReadFile("testdata/normal_cdf_vectors.csv")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if len(recs) < 200 {
		t.Fatalf("too few vectors: %d", len(recs))
	}

	maxErr := new(big.Int)
	for _, r := range recs {
		got, err := gaussian.NormalCDF(r.X, r.Mu, r.Sigma)
		if err != nil {
			t.Fatalf("line %d: NormalCDF error: %v", r.Line, err)
		}
		diff := new(big.Int).Sub(got, r.Expected)
		diff.Abs(diff)
		if diff.Cmp(tolerance) > 0 {
			t.Fatalf("line %d: got=%s want=%s diff=%s", r.Line, got, r.Expected, diff)
		}
		if diff.Cmp(maxErr) > 0 {
			maxErr = diff
		}
	}
	t.Logf("%d vectors, max error %s wei", len(recs), maxErr)
}
