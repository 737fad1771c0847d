// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordLoginAttempt(strategy string, status string)
	RecordSessionCreated()
	RecordSessionDestroyed()
	RecordSessionsSwept(count int64)
	RecordHTTPStatus(statusCode int)
	RecordCoverFetchLatency(duration time.Duration)
	RecordCoverFetched()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginAttempts     *prometheus.CounterVec
	sessionsCreated   prometheus.Counter
	sessionsDestroyed prometheus.Counter
	sessionsSwept     prometheus.Counter
	httpStatus        *prometheus.CounterVec
	coverLatency      prometheus.Histogram
	coversFetched     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_login_attempts_total",
			Help: "認証戦略・判定結果別のログイン試行数",
		}, []string{"strategy", "status"}),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_sessions_created_total",
			Help: "作成されたセッションの合計数",
		}),
		sessionsDestroyed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_sessions_destroyed_total",
			Help: "破棄されたセッションの合計数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_sessions_swept_total",
			Help: "クリーンアップワーカーが削除した期限切れセッションの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		coverLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bookman_cover_fetch_latency_seconds",
			Help:    "表紙画像取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		coversFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookman_covers_fetched_total",
			Help: "取得に成功した表紙画像の合計数",
		}),
	}

	reg.MustRegister(
		c.loginAttempts,
		c.sessionsCreated,
		c.sessionsDestroyed,
		c.sessionsSwept,
		c.httpStatus,
		c.coverLatency,
		c.coversFetched,
	)

	return c
}

// RecordLoginAttempt は認証戦略と判定結果ごとのログイン試行を記録する。
func (c *Collector) RecordLoginAttempt(strategy string, status string) {
	c.loginAttempts.WithLabelValues(strategy, status).Inc()
}

// RecordSessionCreated はセッション作成を記録する。
func (c *Collector) RecordSessionCreated() {
	c.sessionsCreated.Inc()
}

// RecordSessionDestroyed はセッション破棄を記録する。
func (c *Collector) RecordSessionDestroyed() {
	c.sessionsDestroyed.Inc()
}

// RecordSessionsSwept はクリーンアップで削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCoverFetchLatency は表紙取得のレイテンシを記録する。
func (c *Collector) RecordCoverFetchLatency(duration time.Duration) {
	c.coverLatency.Observe(duration.Seconds())
}

// RecordCoverFetched は表紙取得成功を記録する。
func (c *Collector) RecordCoverFetched() {
	c.coversFetched.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var _ MetricsCollector = (*Collector)(nil)
