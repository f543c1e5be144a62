package domain

import "time"

// MigrationStatus はマイグレーションの適用状態を表す。
type MigrationStatus string

const (
	MigrationStatusPending MigrationStatus = "pending"
	MigrationStatusApplied MigrationStatus = "applied"
)

// Migration はスキーマ変更1件を表す。
type Migration struct {
	Version   string     // 例: "001"
	Name      string     // ファイル名から抽出
	Path      string     // migrations FS 内のパス
	AppliedAt *time.Time // 未適用ならnil
	Status    MigrationStatus
}
