// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ハンドラー、ワーカーから利用する。
type MetricsCollector interface {
	RecordBookmarkCreated()
	RecordBookmarkUpdated()
	RecordBookmarkDeleted()
	RecordChangeEventPublished()
	RecordChangeEventDelivered()
	IncWatchConnections()
	DecWatchConnections()
	RecordFaviconFetchSuccess()
	RecordFaviconFetchFailure()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	bookmarkCreated  prometheus.Counter
	bookmarkUpdated  prometheus.Counter
	bookmarkDeleted  prometheus.Counter
	eventsPublished  prometheus.Counter
	eventsDelivered  prometheus.Counter
	watchConnections prometheus.Gauge
	faviconSuccess   prometheus.Counter
	faviconFailure   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookmarkCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_bookmark_created_total",
			Help: "ブックマーク作成の合計数",
		}),
		bookmarkUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_bookmark_updated_total",
			Help: "ブックマーク更新の合計数",
		}),
		bookmarkDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_bookmark_deleted_total",
			Help: "ブックマーク削除の合計数",
		}),
		eventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_change_events_published_total",
			Help: "発行された変更イベントの合計数",
		}),
		eventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_change_events_delivered_total",
			Help: "購読者に配信された変更イベントの合計数",
		}),
		watchConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bukuma_watch_connections",
			Help: "現在の変更フィード購読接続数",
		}),
		faviconSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_favicon_fetch_success_total",
			Help: "favicon取得成功の合計数",
		}),
		faviconFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bukuma_favicon_fetch_fail_total",
			Help: "favicon取得失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.bookmarkCreated,
		c.bookmarkUpdated,
		c.bookmarkDeleted,
		c.eventsPublished,
		c.eventsDelivered,
		c.watchConnections,
		c.faviconSuccess,
		c.faviconFailure,
	)

	return c
}

// RecordBookmarkCreated はブックマーク作成を記録する。
func (c *Collector) RecordBookmarkCreated() {
	c.bookmarkCreated.Inc()
}

// RecordBookmarkUpdated はブックマーク更新を記録する。
func (c *Collector) RecordBookmarkUpdated() {
	c.bookmarkUpdated.Inc()
}

// RecordBookmarkDeleted はブックマーク削除を記録する。
func (c *Collector) RecordBookmarkDeleted() {
	c.bookmarkDeleted.Inc()
}

// RecordChangeEventPublished は変更イベントの発行を記録する。
func (c *Collector) RecordChangeEventPublished() {
	c.eventsPublished.Inc()
}

// RecordChangeEventDelivered は変更イベントの配信を記録する。
func (c *Collector) RecordChangeEventDelivered() {
	c.eventsDelivered.Inc()
}

// IncWatchConnections は変更フィード購読接続の開始を記録する。
func (c *Collector) IncWatchConnections() {
	c.watchConnections.Inc()
}

// DecWatchConnections は変更フィード購読接続の終了を記録する。
func (c *Collector) DecWatchConnections() {
	c.watchConnections.Dec()
}

// RecordFaviconFetchSuccess はfavicon取得成功を記録する。
func (c *Collector) RecordFaviconFetchSuccess() {
	c.faviconSuccess.Inc()
}

// RecordFaviconFetchFailure はfavicon取得失敗を記録する。
func (c *Collector) RecordFaviconFetchFailure() {
	c.faviconFailure.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
