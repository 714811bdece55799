package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定名のカウンタ値を取得するヘルパー。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() == name {
			var total float64
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
			return total
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordUploadSuccess_IncrementsCounter はアップロード成功カウンタが増加することを検証する。
func TestRecordUploadSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploadSuccess()
	c.RecordUploadSuccess()

	if got := counterValue(t, reg, "pixelforge_upload_success_total"); got != 2 {
		t.Errorf("upload_success_total = %v, want 2", got)
	}
}

// TestRecordUploadFailure_IncrementsCounterByReason は理由別の失敗カウンタを検証する。
func TestRecordUploadFailure_IncrementsCounterByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploadFailure("upstream_error")
	c.RecordUploadFailure("upstream_error")
	c.RecordUploadFailure("invalid_request")

	if got := counterValue(t, reg, "pixelforge_upload_fail_total"); got != 3 {
		t.Errorf("upload_fail_total = %v, want 3", got)
	}
}

// TestRecordUploadLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordUploadLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUploadLatency(250 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "pixelforge_upload_latency_seconds" {
			found = true
			count := mf.GetMetric()[0].GetHistogram().GetSampleCount()
			if count != 1 {
				t.Errorf("histogram sample count = %d, want 1", count)
			}
		}
	}
	if !found {
		t.Error("pixelforge_upload_latency_seconds metric not found")
	}
}

// TestRecordHTTPStatus_LabelsByCode はステータスコード別に記録されることを検証する。
func TestRecordHTTPStatus_LabelsByCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(409)

	if got := counterValue(t, reg, "pixelforge_http_status_total"); got != 3 {
		t.Errorf("http_status_total = %v, want 3", got)
	}
}

// TestRecordProjectAndExportCounters はプロジェクト・エクスポートカウンタを検証する。
func TestRecordProjectAndExportCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProjectCreated()
	c.RecordProjectCreated()
	c.RecordProjectDeleted()
	c.RecordExport()

	if got := counterValue(t, reg, "pixelforge_projects_created_total"); got != 2 {
		t.Errorf("projects_created_total = %v, want 2", got)
	}
	if got := counterValue(t, reg, "pixelforge_projects_deleted_total"); got != 1 {
		t.Errorf("projects_deleted_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "pixelforge_exports_total"); got != 1 {
		t.Errorf("exports_total = %v, want 1", got)
	}
}

// TestRecordQuotaRejection_LabelsByType はクォータ拒否が種別ごとに記録されることを検証する。
func TestRecordQuotaRejection_LabelsByType(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordQuotaRejection("project")
	c.RecordQuotaRejection("export")
	c.RecordQuotaRejection("export")

	if got := counterValue(t, reg, "pixelforge_quota_rejections_total"); got != 3 {
		t.Errorf("quota_rejections_total = %v, want 3", got)
	}
}

// TestHandler_ServesPrometheusFormat はスクレイプ可能な形式で応答することを検証する。
func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordUploadSuccess()

	handler := Handler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "pixelforge_upload_success_total") {
		t.Error("metrics output should contain pixelforge_upload_success_total")
	}
}
