package domain

import "time"

// SelfTestRun は既知解テスト1件の実行結果。
type SelfTestRun struct {
	ID       string
	Vector   string
	Passed   bool
	Expected string
	Actual   string
	RanAt    time.Time
}
