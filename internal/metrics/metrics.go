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
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordUploadSuccess()
	RecordUploadFailure(reason string)
	RecordUploadLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordProjectCreated()
	RecordProjectDeleted()
	RecordExport()
	RecordQuotaRejection(quotaType string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	uploadSuccess   prometheus.Counter
	uploadFail      *prometheus.CounterVec
	uploadLatency   prometheus.Histogram
	httpStatus      *prometheus.CounterVec
	projectsCreated prometheus.Counter
	projectsDeleted prometheus.Counter
	exports         prometheus.Counter
	quotaRejections *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		uploadSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_upload_success_total",
			Help: "メディアアップロード成功の合計数",
		}),
		uploadFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_upload_fail_total",
			Help: "メディアアップロード失敗の合計数（理由別）",
		}, []string{"reason"}),
		uploadLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelforge_upload_latency_seconds",
			Help:    "メディアアップロードのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		projectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_projects_created_total",
			Help: "作成されたプロジェクトの合計数",
		}),
		projectsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_projects_deleted_total",
			Help: "削除されたプロジェクトの合計数",
		}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pixelforge_exports_total",
			Help: "実行されたエクスポートの合計数",
		}),
		quotaRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelforge_quota_rejections_total",
			Help: "プランクォータにより拒否された操作の合計数（種別ごと）",
		}, []string{"quota_type"}),
	}

	reg.MustRegister(
		c.uploadSuccess,
		c.uploadFail,
		c.uploadLatency,
		c.httpStatus,
		c.projectsCreated,
		c.projectsDeleted,
		c.exports,
		c.quotaRejections,
	)

	return c
}

// RecordUploadSuccess はアップロード成功を記録する。
func (c *Collector) RecordUploadSuccess() {
	c.uploadSuccess.Inc()
}

// RecordUploadFailure はアップロード失敗を理由別に記録する。
func (c *Collector) RecordUploadFailure(reason string) {
	c.uploadFail.WithLabelValues(reason).Inc()
}

// RecordUploadLatency はアップロードのレイテンシを記録する。
func (c *Collector) RecordUploadLatency(duration time.Duration) {
	c.uploadLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordProjectCreated はプロジェクト作成を記録する。
func (c *Collector) RecordProjectCreated() {
	c.projectsCreated.Inc()
}

// RecordProjectDeleted はプロジェクト削除を記録する。
func (c *Collector) RecordProjectDeleted() {
	c.projectsDeleted.Inc()
}

// RecordExport はエクスポート実行を記録する。
func (c *Collector) RecordExport() {
	c.exports.Inc()
}

// RecordQuotaRejection はクォータによる拒否を種別ごとに記録する。
// quotaTypeは"project"または"export"。
func (c *Collector) RecordQuotaRejection(quotaType string) {
	c.quotaRejections.WithLabelValues(quotaType).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
