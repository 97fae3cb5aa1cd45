// Package vectors 读写测试向量交换格式。
//
// 每行一条记录，以 '\n' 结尾：
//
//	x_fixed,mu_fixed,sigma_fixed,expected_cdf_fixed
//
// 四个字段都是 WAD 定点整数字面量（实数 × 1e18，四舍五入）。
// 空行和以 '#' 开头的注释行会被跳过。
package vectors

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/betbot/gausscdf/pkg/wad"
)

// ErrMalformedRecord 行格式错误
var ErrMalformedRecord = errors.New("vectors: malformed record")

const fieldCount = 4

// Record 一条测试向量。
type Record struct {
	Line     int // 源文件中的行号（从 1 开始），Write 时忽略
	X        *big.Int
	Mu       *big.Int
	Sigma    *big.Int
	Expected *big.Int
}

// ParseLine 解析单行记录。lineNo 只用于错误信息。
func ParseLine(line string, lineNo int) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r"), ",")
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("%w: line %d: want %d fields, got %d", ErrMalformedRecord, lineNo, fieldCount, len(fields))
	}
	vals := make([]*big.Int, fieldCount)
	for i, f := range fields {
		v, err := wad.ParseFixed(f)
		if err != nil {
			return Record{}, fmt.Errorf("%w: line %d field %d: %v", ErrMalformedRecord, lineNo, i+1, err)
		}
		vals[i] = v
	}
	return Record{Line: lineNo, X: vals[0], Mu: vals[1], Sigma: vals[2], Expected: vals[3]}, nil
}

// Read 从 r 读取全部记录，遇到第一条格式错误即返回。
func Read(r io.Reader) ([]Record, error) {
	var out []Record
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := ParseLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read vectors at line %d", lineNo)
	}
	return out, nil
}

// ReadFile 读取本地向量文件。
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open vectors %s", path)
	}
	defer f.Close()
	return Read(f)
}

// Write 按交换格式写出记录。
func Write(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	for i, r := range recs {
		if r.X == nil || r.Mu == nil || r.Sigma == nil || r.Expected == nil {
			return fmt.Errorf("%w: record %d has nil field", ErrMalformedRecord, i)
		}
		if _, err := fmt.Fprintf(bw, "%s,%s,%s,%s\n", r.X, r.Mu, r.Sigma, r.Expected); err != nil {
			return errors.Wrap(err, "write vectors")
		}
	}
	return errors.Wrap(bw.Flush(), "flush vectors")
}

// Fetch 通过 HTTP 下载向量文件（例如 oracle 生成器发布的地址），失败自动重试。
func Fetch(ctx context.Context, url string) ([]Record, error) {
	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second)

	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch vectors %s", url)
	}
	if resp.IsError() {
		return nil, errors.Errorf("fetch vectors %s: status %s", url, resp.Status())
	}
	return Read(bytes.NewReader(resp.Body()))
}

// Load 根据 src 的形式选择来源：http(s) 地址走 Fetch，其余按本地路径读取。
func Load(ctx context.Context, src string) ([]Record, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return Fetch(ctx, src)
	}
	return ReadFile(src)
}
