package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "medcare"

// ChatMetrics exposes counters/histograms for the conversation engine.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	intentsTotal     *prometheus.CounterVec
	llmLatency       *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns handled, by the stage the turn started in",
		}, []string{"stage", "status"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "stage_transitions_total",
			Help:      "Conversation stage changes",
		}, []string{"from", "to"}),
		intentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "intents_total",
			Help:      "Classified intents of general-chat replies",
		}, []string{"classifier", "intent"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "llm_latency_seconds",
			Help:      "Latency of text-completion calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"purpose", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.transitionsTotal, m.intentsTotal, m.llmLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(stage, status string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage, status).Inc()
}

func (m *ChatMetrics) ObserveTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *ChatMetrics) ObserveIntent(classifier, intent string) {
	if m == nil {
		return
	}
	m.intentsTotal.WithLabelValues(classifier, intent).Inc()
}

func (m *ChatMetrics) ObserveLLMLatency(purpose string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(purpose, statusLabel(err)).Observe(seconds)
}

// BookingMetrics counts slot reservations by outcome.
type BookingMetrics struct {
	bookingsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Slot booking attempts by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal)
	return m
}

// ObserveBooking records "booked", "unavailable" or "error".
func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

// ReminderMetrics covers the reminder scheduler and worker.
type ReminderMetrics struct {
	enqueuedTotal   *prometheus.CounterVec
	dispatchedTotal *prometheus.CounterVec
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		enqueuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "enqueued_total",
			Help:      "Due reminders published to the queue",
		}, []string{"status"}),
		dispatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminders",
			Name:      "dispatched_total",
			Help:      "Reminder messages delivered to patient inboxes",
		}, []string{"source", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.enqueuedTotal, m.dispatchedTotal)
	return m
}

func (m *ReminderMetrics) ObserveEnqueued(err error) {
	if m == nil {
		return
	}
	m.enqueuedTotal.WithLabelValues(statusLabel(err)).Inc()
}

// ObserveDispatched records a delivered reminder; source is "llm" or "fallback".
func (m *ReminderMetrics) ObserveDispatched(source string, err error) {
	if m == nil {
		return
	}
	m.dispatchedTotal.WithLabelValues(source, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
