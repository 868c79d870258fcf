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
	RecordCheckin(source string)
	RecordInvite()
	RecordAdvisorySent(window string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	checkins       *prometheus.CounterVec
	invites        prometheus.Counter
	advisories     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		checkins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsudoi_checkins_total",
			Help: "出席記録の合計数（起点別）",
		}, []string{"source"}),
		invites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsudoi_invites_total",
			Help: "参加者招待の合計数",
		}),
		advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsudoi_advisories_sent_total",
			Help: "送信されたリマインダーの合計数（ウィンドウ別）",
		}, []string{"window"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsudoi_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsudoi_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.checkins,
		c.invites,
		c.advisories,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordCheckin は出席記録を起点別に記録する。
func (c *Collector) RecordCheckin(source string) {
	c.checkins.WithLabelValues(source).Inc()
}

// RecordInvite は参加者招待を記録する。
func (c *Collector) RecordInvite() {
	c.invites.Inc()
}

// RecordAdvisorySent は送信されたリマインダーをウィンドウ別に記録する。
func (c *Collector) RecordAdvisorySent(window string) {
	c.advisories.WithLabelValues(window).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// NopCollector は何も記録しないMetricsCollector実装。
// メトリクスを使わないテストや構成で使用する。
type NopCollector struct{}

func (NopCollector) RecordCheckin(string)               {}
func (NopCollector) RecordInvite()                      {}
func (NopCollector) RecordAdvisorySent(string)          {}
func (NopCollector) RecordHTTPStatus(int)               {}
func (NopCollector) RecordRequestLatency(time.Duration) {}

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
