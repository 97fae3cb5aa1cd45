package runstore

import "time"

// Run 一次一致性检查的记录。大整数以十进制字符串保存。
type Run struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Tolerance  string     `json:"tolerance"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	OK         *bool      `json:"ok,omitempty"`
	Total      int        `json:"total"`
	Passed     int        `json:"passed"`
	Failed     int        `json:"failed"`
	Rejected   int        `json:"rejected"`
	MaxError   string     `json:"max_error,omitempty"`
	DurationMS int64      `json:"duration_ms"`
	Error      *string    `json:"error,omitempty"`
}
