// Package covers は表紙画像のバックグラウンド取得処理を提供する。
// ISBNが登録済みで表紙が未取得の書籍を定期的に拾い、
// Open Library Covers APIから画像を取得して保存する。
package covers

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/bookman/internal/cover"
	"github.com/hitoshi/bookman/internal/repository"
)

// FetchRecorder は表紙取得メトリクスの記録インターフェース。
type FetchRecorder interface {
	RecordCoverFetched()
	RecordCoverFetchLatency(duration time.Duration)
}

// Prefetcher は表紙未取得の書籍の表紙をまとめて取得するジョブ。
type Prefetcher struct {
	books     repository.BookRepository
	fetcher   cover.FetcherService
	logger    *slog.Logger
	metrics   FetchRecorder
	batchSize int
}

// NewPrefetcher は新しいPrefetcherを生成する。
// batchSizeが0以下の場合はデフォルト値20を使用する。metricsはnilを許容する。
func NewPrefetcher(
	books repository.BookRepository,
	fetcher cover.FetcherService,
	logger *slog.Logger,
	metrics FetchRecorder,
	batchSize int,
) *Prefetcher {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &Prefetcher{
		books:     books,
		fetcher:   fetcher,
		logger:    logger,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// RunOnce は表紙未取得の書籍を1バッチ処理する。
// 個々の取得失敗はログに残して続行する。表紙が存在しない書籍は
// 次のサイクルでも再試行されるが、外部APIへの負荷はバッチサイズで抑える。
func (p *Prefetcher) RunOnce(ctx context.Context) error {
	books, err := p.books.ListMissingCovers(ctx, p.batchSize)
	if err != nil {
		return err
	}

	if len(books) == 0 {
		return nil
	}

	p.logger.Info("表紙取得サイクルを開始します",
		slog.Int("book_count", len(books)),
	)

	for _, b := range books {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		start := time.Now()
		data, mime, err := p.fetcher.FetchByISBN(ctx, b.ISBN)
		if err != nil {
			p.logger.Warn("表紙取得に失敗しました",
				slog.String("book_id", b.ID),
				slog.String("isbn", b.ISBN),
				slog.String("error", err.Error()),
			)
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordCoverFetchLatency(time.Since(start))
		}

		if data == nil {
			continue
		}

		if err := p.books.UpdateCover(ctx, b.ID, data, mime); err != nil {
			p.logger.Error("表紙の保存に失敗しました",
				slog.String("book_id", b.ID),
				slog.String("error", err.Error()),
			)
			continue
		}

		if p.metrics != nil {
			p.metrics.RecordCoverFetched()
		}
	}

	return nil
}

// Start は指定間隔のティッカーでジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (p *Prefetcher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Info("表紙取得ワーカーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", p.batchSize),
	)

	if err := p.RunOnce(ctx); err != nil {
		p.logger.Error("表紙取得サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("表紙取得ワーカーを停止しました")
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.logger.Error("表紙取得サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
