package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveTurn("general", "ok")
	m.ObserveTurn("general", "ok")
	m.ObserveTransition("general", "awaiting_doctor_selection")
	m.ObserveTransition("general", "general")
	m.ObserveIntent("keyword", "suggest_doctor")
	m.ObserveLLMLatency("chat", nil, 0.25)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("general", "ok")); got != 2 {
		t.Fatalf("expected 2 turns, got %v", got)
	}
	if got := testutil.CollectAndCount(m.transitionsTotal); got != 1 {
		t.Fatalf("expected self-transitions to be ignored, got %d series", got)
	}
}

func TestLLMLatencyHistogramLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveLLMLatency("intent", nil, 0.2)
	m.ObserveLLMLatency("intent", errors.New("timeout"), 3)
	m.ObserveLLMLatency("intent", nil, 0.4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "medcare_chat_llm_latency_seconds" {
			hist = f
		}
	}
	if hist == nil || hist.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatalf("expected latency histogram to be registered")
	}
	counts := map[string]uint64{}
	for _, metric := range hist.GetMetric() {
		var status string
		for _, label := range metric.GetLabel() {
			if label.GetName() == "status" {
				status = label.GetValue()
			}
		}
		counts[status] = metric.GetHistogram().GetSampleCount()
	}
	if counts["ok"] != 2 || counts["error"] != 1 {
		t.Fatalf("unexpected sample counts: %v", counts)
	}
}

func TestBookingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveBooking("booked")
	m.ObserveBooking("unavailable")

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("unavailable")); got != 1 {
		t.Fatalf("expected 1 unavailable booking, got %v", got)
	}
}

func TestReminderMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewReminderMetrics(reg)
	m.ObserveEnqueued(nil)
	m.ObserveDispatched("fallback", errors.New("inbox down"))

	if got := testutil.ToFloat64(m.dispatchedTotal.WithLabelValues("fallback", "error")); got != 1 {
		t.Fatalf("expected 1 failed dispatch, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var chat *ChatMetrics
	chat.ObserveTurn("general", "ok")
	chat.ObserveTransition("a", "b")
	chat.ObserveIntent("keyword", "none")
	chat.ObserveLLMLatency("chat", nil, 0.1)

	var bookings *BookingMetrics
	bookings.ObserveBooking("booked")

	var reminders *ReminderMetrics
	reminders.ObserveEnqueued(nil)
	reminders.ObserveDispatched("llm", nil)
}
