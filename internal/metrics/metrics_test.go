package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue は指定メトリクスの指定ラベルのカウンタ値を返す。
func counterValue(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue == "" && len(m.GetLabel()) == 0 {
				return m.GetCounter().GetValue()
			}
			for _, l := range m.GetLabel() {
				if l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %q (label %q) not found", name, labelValue)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordSignup_IncrementsCounter はサインアップカウンタが
// 結果ラベル別に増加することを検証する。
func TestRecordSignup_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignup(OutcomeSuccess)
	c.RecordSignup(OutcomeSuccess)
	c.RecordSignup(OutcomeFailure)

	if val := counterValue(t, reg, "devent_signup_total", OutcomeSuccess); val != 2 {
		t.Errorf("signup_total{success} = %v, want 2", val)
	}
	if val := counterValue(t, reg, "devent_signup_total", OutcomeFailure); val != 1 {
		t.Errorf("signup_total{failure} = %v, want 1", val)
	}
}

// TestRecordLogin_IncrementsCounter はログインカウンタが増加することを検証する。
func TestRecordLogin_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin(OutcomeFailure)

	if val := counterValue(t, reg, "devent_login_total", OutcomeFailure); val != 1 {
		t.Errorf("login_total{failure} = %v, want 1", val)
	}
}

// TestRecordTokenVerify_IncrementsCounter はトークン検証カウンタが増加することを検証する。
func TestRecordTokenVerify_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenVerify(OutcomeSuccess)

	if val := counterValue(t, reg, "devent_token_verify_total", OutcomeSuccess); val != 1 {
		t.Errorf("token_verify_total{success} = %v, want 1", val)
	}
}

// TestRecordEventCreated_IncrementsCounter はイベント登録カウンタが増加することを検証する。
func TestRecordEventCreated_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEventCreated()
	c.RecordEventCreated()

	if val := counterValue(t, reg, "devent_events_created_total", ""); val != 2 {
		t.Errorf("events_created_total = %v, want 2", val)
	}
}

// TestRecordHTTPStatus_IncrementsCounter はステータスコード別カウンタを検証する。
func TestRecordHTTPStatus_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(401)

	if val := counterValue(t, reg, "devent_http_status_total", "200"); val != 2 {
		t.Errorf("http_status_total{200} = %v, want 2", val)
	}
	if val := counterValue(t, reg, "devent_http_status_total", "401"); val != 1 {
		t.Errorf("http_status_total{401} = %v, want 1", val)
	}
}

// TestRecordRequestLatency_Observes はレイテンシが記録されることを検証する。
func TestRecordRequestLatency_Observes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(150 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "devent_request_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 1 {
				t.Errorf("sample count = %d, want 1", h.GetSampleCount())
			}
		}
	}
	if !found {
		t.Error("devent_request_latency_seconds metric not found")
	}
}
