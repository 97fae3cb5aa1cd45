// Package resultstore 把求值结果持久化到 Badger，服务重启后缓存仍然有效。
//
// 核心计算是确定性的，同一组 (x, μ, σ) 的结果永远相同，所以只需要按输入做键。
package resultstore

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/betbot/gausscdf/pkg/gaussian"
)

const keyPrefix = "cdf:"

// Store Badger KV 封装
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenOptions 打开参数
type OpenOptions struct {
	Path     string
	InMemory bool          // 不落盘（测试用），此时忽略 Path
	TTL      time.Duration // 0 表示永不过期
}

// Open 打开存储
func Open(opts OpenOptions) (*Store, error) {
	var bopts badger.Options
	switch {
	case opts.InMemory:
		bopts = badger.DefaultOptions("").WithInMemory(true)
	case strings.TrimSpace(opts.Path) != "":
		bopts = badger.DefaultOptions(opts.Path)
	default:
		return nil, errors.New("resultstore: path is required")
	}
	db, err := badger.Open(bopts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("resultstore: open badger: %w", err)
	}
	return &Store{db: db, ttl: opts.TTL}, nil
}

// Close 关闭存储
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Key 由输入生成键
func Key(p gaussian.Params) string {
	return keyPrefix + p.X.String() + "|" + p.Mu.String() + "|" + p.Sigma.String()
}

// encode 格式: z,erfc,cdf,saturated；饱和时 z 为空
func encode(res gaussian.Result) []byte {
	z := ""
	if res.Z != nil {
		z = res.Z.String()
	}
	sat := "0"
	if res.Saturated {
		sat = "1"
	}
	return []byte(z + "," + res.Erfc.String() + "," + res.CDF.String() + "," + sat)
}

func decode(val []byte) (gaussian.Result, error) {
	parts := strings.Split(string(val), ",")
	if len(parts) != 4 {
		return gaussian.Result{}, fmt.Errorf("resultstore: corrupt value %q", val)
	}
	var res gaussian.Result
	if parts[0] != "" {
		z, ok := new(big.Int).SetString(parts[0], 10)
		if !ok {
			return gaussian.Result{}, fmt.Errorf("resultstore: corrupt z %q", parts[0])
		}
		res.Z = z
	}
	erfc, ok1 := new(big.Int).SetString(parts[1], 10)
	cdf, ok2 := new(big.Int).SetString(parts[2], 10)
	if !ok1 || !ok2 {
		return gaussian.Result{}, fmt.Errorf("resultstore: corrupt value %q", val)
	}
	res.Erfc, res.CDF = erfc, cdf
	res.Saturated = parts[3] == "1"
	return res, nil
}

// Get 读取结果，不存在时 ok 为 false
func (s *Store) Get(p gaussian.Params) (res gaussian.Result, ok bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key(p)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decode(val)
			if err != nil {
				return err
			}
			res, ok = r, true
			return nil
		})
	})
	return res, ok, err
}

// Put 写入结果
func (s *Store) Put(p gaussian.Params, res gaussian.Result) error {
	e := badger.NewEntry([]byte(Key(p)), encode(res))
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

// Count 当前条目数
func (s *Store) Count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
