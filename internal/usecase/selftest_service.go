package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"aes128-service/internal/aes128"
	"aes128-service/internal/domain"
)

// SelfTestRepository は既知解テスト結果の保存先のインターフェース。
type SelfTestRepository interface {
	Create(ctx context.Context, run *domain.SelfTestRun) error
	FindLatest(ctx context.Context) ([]*domain.SelfTestRun, error)
}

// SelfTestService は既知解テストを実行し、結果を記録する。
type SelfTestService struct {
	repo SelfTestRepository
	now  func() time.Time
}

// NewSelfTestService は新しいSelfTestServiceを生成する。
func NewSelfTestService(repo SelfTestRepository) *SelfTestService {
	return &SelfTestService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Run は全ベクタを実行して保存する。1件でも不一致があればErrSelfTestFailedを返すが、結果は常に返す。
func (s *SelfTestService) Run(ctx context.Context) (_ []*domain.SelfTestRun, err error) {
	ctx, span := tracer.Start(ctx, "SelfTestService.Run")
	defer func() { finishSpan(span, err) }()

	results, err := aes128.SelfTest()
	if err != nil {
		return nil, fmt.Errorf("running known answer tests: %w", err)
	}

	ranAt := s.now()
	runs := make([]*domain.SelfTestRun, 0, len(results))
	var failed []string
	for _, res := range results {
		run := &domain.SelfTestRun{
			Vector:   res.Name,
			Passed:   res.Passed,
			Expected: res.Expected,
			Actual:   res.Actual,
			RanAt:    ranAt,
		}
		if err := s.repo.Create(ctx, run); err != nil {
			return runs, fmt.Errorf("recording self test run: %w", err)
		}
		runs = append(runs, run)

		if !res.Passed {
			failed = append(failed, res.Name)
			slog.ErrorContext(ctx, "known answer test mismatch",
				"vector", res.Name,
				"expected", res.Expected,
				"actual", res.Actual,
			)
		}
	}

	if len(failed) > 0 {
		return runs, fmt.Errorf("%w: %s", domain.ErrSelfTestFailed, strings.Join(failed, ", "))
	}
	slog.InfoContext(ctx, "known answer tests passed", "vectors", len(runs))
	return runs, nil
}

// Latest はベクタごとの最新結果を返す。
func (s *SelfTestService) Latest(ctx context.Context) ([]*domain.SelfTestRun, error) {
	runs, err := s.repo.FindLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("finding latest runs: %w", err)
	}
	return runs, nil
}
