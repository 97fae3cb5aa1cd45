// Package runstore 用 SQLite 保存一致性检查的历史记录。
package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/betbot/gausscdf/internal/conformance"
)

// 定长纳秒时间，保证按字符串排序等于按时间排序
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("runstore: run not found")

// Store SQLite 存储
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）数据库文件并建表
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite 单连接
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS conformance_runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  tolerance TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT,
  ok INTEGER,
  total INTEGER NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0,
  rejected INTEGER NOT NULL DEFAULT 0,
  max_error TEXT,
  duration_ms INTEGER NOT NULL DEFAULT 0,
  error TEXT
);`,
		`CREATE INDEX IF NOT EXISTS idx_conformance_runs_started ON conformance_runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Start 插入一条未完成的记录，返回新的 id
func (s *Store) Start(ctx context.Context, source, tolerance string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO conformance_runs (id, source, tolerance, started_at)
VALUES (?,?,?,?)
`, id, source, tolerance, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Finish 写入运行结果。runErr 非空时 rep 可以为 nil，记录为失败。
func (s *Store) Finish(ctx context.Context, id string, rep *conformance.Report, runErr error) error {
	var (
		ok       bool
		errMsg   *string
		total    int
		passed   int
		failed   int
		rejected int
		maxErr   *string
		duration int64
	)
	if runErr != nil {
		msg := runErr.Error()
		errMsg = &msg
	}
	if rep != nil {
		ok = runErr == nil && rep.OK()
		total, passed, failed, rejected = rep.Total, rep.Passed, rep.Failed, rep.Rejected
		if rep.MaxError != nil {
			v := rep.MaxError.String()
			maxErr = &v
		}
		duration = rep.Duration.Milliseconds()
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE conformance_runs
SET finished_at=?, ok=?, total=?, passed=?, failed=?, rejected=?, max_error=?, duration_ms=?, error=?
WHERE id=?
`, time.Now().UTC().Format(timeFormat), boolToInt(ok), total, passed, failed, rejected, maxErr, duration, errMsg, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectRun = `
SELECT id, source, tolerance, started_at, finished_at, ok, total, passed, failed, rejected, max_error, duration_ms, error
FROM conformance_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		startedAt  string
		finishedAt sql.NullString
		okVal      sql.NullInt64
		maxErr     sql.NullString
		errStr     sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Source, &r.Tolerance, &startedAt, &finishedAt, &okVal,
		&r.Total, &r.Passed, &r.Failed, &r.Rejected, &maxErr, &r.DurationMS, &errStr); err != nil {
		return Run{}, err
	}
	r.StartedAt, _ = time.Parse(timeFormat, startedAt)
	if finishedAt.Valid {
		if t, err := time.Parse(timeFormat, finishedAt.String); err == nil {
			r.FinishedAt = &t
		}
	}
	if okVal.Valid {
		v := okVal.Int64 != 0
		r.OK = &v
	}
	if maxErr.Valid {
		r.MaxError = maxErr.String
	}
	if errStr.Valid {
		v := errStr.String
		r.Error = &v
	}
	return r, nil
}

// Get 按 id 查询
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, selectRun+` WHERE id=?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}

// List 最近的记录，按开始时间倒序；limit 超出 (0, 200] 时取 50
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, selectRun+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
