// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// 絶対期限（発行から24時間）を超過したセッション行を定期バッチで削除する。
// 期限切れセッションは読み取り時点でも拒否されるため、このジョブは
// 安全性ではなくテーブルの肥大化防止のために存在する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/bookman/internal/repository"
)

// SweptRecorder は削除件数のメトリクス記録インターフェース。
type SweptRecorder interface {
	RecordSessionsSwept(count int64)
}

// SessionSweeper は期限切れセッションの自動削除ジョブ。
// 冪等な削除処理を保証する。
type SessionSweeper struct {
	sessions repository.SessionRepository
	logger   *slog.Logger
	metrics  SweptRecorder
}

// NewSessionSweeper は新しいSessionSweeperを生成する。
// metricsはnilを許容する。
func NewSessionSweeper(sessions repository.SessionRepository, logger *slog.Logger, metrics SweptRecorder) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run は期限切れセッションを1回削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (s *SessionSweeper) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionsSwept(deleted)
	}

	s.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *SessionSweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("セッションクリーンアップワーカーを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.Run(ctx); err != nil {
		s.logger.Error("セッションクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("セッションクリーンアップワーカーを停止しました")
			return
		case <-ticker.C:
			if err := s.Run(ctx); err != nil {
				s.logger.Error("セッションクリーンアップに失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
