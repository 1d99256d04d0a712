package favicon

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/hitoshi/bukuma/internal/metrics"
	"github.com/hitoshi/bukuma/internal/model"
	"github.com/hitoshi/bukuma/internal/repository"
	"github.com/hitoshi/bukuma/internal/sync"
)

// Enricher はfavicon未取得のブックマークをバックグラウンドで補完する。
// 定期ティッカーで対象ブックマークを取得し、
// semaphoreパターンで最大並列数を制御しながらfaviconを取得・保存する。
// 保存後はupdateイベントを発行し、接続中のセッションに反映させる。
type Enricher struct {
	repo           repository.BookmarkRepository
	fetcher        FaviconFetcherService
	publisher      sync.Publisher
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
	batchSize      int
}

// NewEnricher はEnricherの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5、
// batchSizeが0以下の場合はデフォルト値50を使用する。
func NewEnricher(
	repo repository.BookmarkRepository,
	fetcher FaviconFetcherService,
	publisher sync.Publisher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
	batchSize int,
) *Enricher {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Enricher{
		repo:           repo,
		fetcher:        fetcher,
		publisher:      publisher,
		metrics:        collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		batchSize:      batchSize,
	}
}

// Start は定期ティッカーでエンリッチャーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (e *Enricher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("faviconエンリッチャーを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", e.maxConcurrency),
		slog.Int("batch_size", e.batchSize),
	)

	// 起動直後に1回実行
	if err := e.RunOnce(ctx); err != nil {
		e.logger.Error("faviconエンリッチサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("faviconエンリッチャーを停止しました")
			return
		case <-ticker.C:
			if err := e.RunOnce(ctx); err != nil {
				e.logger.Error("faviconエンリッチサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はfavicon未取得のブックマークを1回取得し、並列でfaviconを補完する。
// semaphoreパターンで最大並列数を制御する。
func (e *Enricher) RunOnce(ctx context.Context) error {
	start := time.Now()

	bookmarks, err := e.repo.ListMissingFavicon(ctx, e.batchSize)
	if err != nil {
		return err
	}

	if len(bookmarks) == 0 {
		return nil
	}

	e.logger.Info("faviconエンリッチサイクルを開始します",
		slog.Int("bookmark_count", len(bookmarks)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, e.maxConcurrency)
	var wg gosync.WaitGroup

	for _, b := range bookmarks {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(bm *model.Bookmark) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			e.enrich(ctx, bm)
		}(b)
	}

	wg.Wait()

	duration := time.Since(start)
	e.logger.Info("faviconエンリッチサイクルが完了しました",
		slog.Int("bookmark_count", len(bookmarks)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// enrich は1件のブックマークのfaviconを取得・保存する。
// 取得失敗時はnullのまま残し、次サイクルで再試行される。
func (e *Enricher) enrich(ctx context.Context, b *model.Bookmark) {
	data, mimeType, err := e.fetcher.FetchFaviconForSite(ctx, b.URL)
	if err != nil || len(data) == 0 {
		if e.metrics != nil {
			e.metrics.RecordFaviconFetchFailure()
		}
		return
	}

	if err := e.repo.UpdateFavicon(ctx, b.ID, data, mimeType); err != nil {
		e.logger.Error("faviconの保存に失敗しました",
			slog.String("bookmark_id", b.ID),
			slog.String("error", err.Error()),
		)
		if e.metrics != nil {
			e.metrics.RecordFaviconFetchFailure()
		}
		return
	}

	if e.metrics != nil {
		e.metrics.RecordFaviconFetchSuccess()
	}

	// 接続中のセッションにfaviconを反映させる
	if e.publisher != nil {
		event := model.ChangeEvent{
			Type:       model.ChangeUpdate,
			BookmarkID: b.ID,
			UserID:     b.UserID,
			OccurredAt: time.Now(),
		}
		if err := e.publisher.Publish(ctx, event); err != nil {
			e.logger.Error("favicon更新イベントの発行に失敗しました",
				slog.String("bookmark_id", b.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}
