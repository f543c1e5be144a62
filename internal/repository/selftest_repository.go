package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"aes128-service/internal/domain"
)

// SelfTestRunModel はselftest_runsテーブルのモデル。
type SelfTestRunModel struct {
	ID       string    `gorm:"type:char(36);primaryKey"`
	Vector   string    `gorm:"type:varchar(64);not null;index:idx_vector_ran_at"`
	Passed   bool      `gorm:"not null"`
	Expected string    `gorm:"type:char(32);not null"`
	Actual   string    `gorm:"type:char(32);not null"`
	RanAt    time.Time `gorm:"type:datetime(6);not null;index:idx_vector_ran_at"`
}

// TableName はテーブル名を返す。
func (SelfTestRunModel) TableName() string {
	return "selftest_runs"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *SelfTestRunModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// SelfTestRepository は既知解テストの実行履歴を保存する。
type SelfTestRepository struct {
	db *gorm.DB
}

// NewSelfTestRepository は新しいSelfTestRepositoryを生成する。
func NewSelfTestRepository(db *gorm.DB) *SelfTestRepository {
	return &SelfTestRepository{db: db}
}

// Create は実行結果を保存する。
func (r *SelfTestRepository) Create(ctx context.Context, run *domain.SelfTestRun) error {
	model := &SelfTestRunModel{
		ID:       run.ID,
		Vector:   run.Vector,
		Passed:   run.Passed,
		Expected: run.Expected,
		Actual:   run.Actual,
		RanAt:    run.RanAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		logFailure(ctx, "failed to record self test run", "create_selftest_run", err, "vector", run.Vector)
		return err
	}
	run.ID = model.ID
	return nil
}

// FindLatest はベクタごとに最新の実行結果を返す。ベクタ名昇順。
func (r *SelfTestRepository) FindLatest(ctx context.Context) ([]*domain.SelfTestRun, error) {
	db := r.db.WithContext(ctx)
	latest := db.Model(&SelfTestRunModel{}).
		Select("vector, MAX(ran_at) AS ran_at").
		Group("vector")

	var models []SelfTestRunModel
	err := db.
		Select("selftest_runs.*").
		Joins("JOIN (?) AS latest ON latest.vector = selftest_runs.vector AND latest.ran_at = selftest_runs.ran_at", latest).
		Order("selftest_runs.vector ASC").
		Order("selftest_runs.id ASC").
		Find(&models).Error
	if err != nil {
		logFailure(ctx, "failed to find latest self test runs", "find_latest_selftest_runs", err)
		return nil, err
	}

	var runs []*domain.SelfTestRun
	for _, m := range models {
		// 同時刻の実行が複数あれば1件に絞る
		if n := len(runs); n > 0 && runs[n-1].Vector == m.Vector {
			continue
		}
		runs = append(runs, &domain.SelfTestRun{
			ID:       m.ID,
			Vector:   m.Vector,
			Passed:   m.Passed,
			Expected: m.Expected,
			Actual:   m.Actual,
			RanAt:    m.RanAt,
		})
	}
	return runs, nil
}
