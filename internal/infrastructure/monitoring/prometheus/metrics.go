package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the pipeline metric families. All Record methods are safe
// on a nil receiver so metrics can be switched off by passing nil.
type AppMetrics struct {
	// Jobs
	JobsSubmitted   CounterVec
	JobTransitions  CounterVec
	JobDuration     HistogramVec
	JobsInFlight    GaugeVec
	CompoundsTotal  CounterVec
	SimilarFound    HistogramVec
	Measurements    CounterVec
	MeasurementSkip CounterVec

	// Collaborators
	CollaboratorCalls    CounterVec
	CollaboratorDuration HistogramVec
	CacheHits            CounterVec
	CacheMisses          CounterVec

	// Transport
	HTTPRequests        CounterVec
	HTTPRequestDuration HistogramVec
	QueueMessages       CounterVec
	QueueDuration       HistogramVec

	Errors CounterVec
}

var (
	HTTPDurationBuckets         = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	JobDurationBuckets          = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}
	CollaboratorDurationBuckets = []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30}
	SimilarCountBuckets         = []float64{0, 1, 5, 10, 25, 50, 100, 250}
)

// NewAppMetrics registers every family on collector.
func NewAppMetrics(c MetricsCollector) *AppMetrics {
	return &AppMetrics{
		JobsSubmitted:   c.RegisterCounter("jobs_submitted_total", "Jobs accepted by the orchestrator", "reused"),
		JobTransitions:  c.RegisterCounter("job_transitions_total", "Job status transitions", "status"),
		JobDuration:     c.RegisterHistogram("job_duration_seconds", "Time from processing start to terminal state", JobDurationBuckets, "status"),
		JobsInFlight:    c.RegisterGauge("jobs_in_flight", "Jobs currently being processed by this worker", "worker"),
		CompoundsTotal:  c.RegisterCounter("compounds_processed_total", "Compounds processed by the worker", "role", "outcome"),
		SimilarFound:    c.RegisterHistogram("similar_compounds_found", "Similar compounds returned per job", SimilarCountBuckets),
		Measurements:    c.RegisterCounter("measurements_processed_total", "Measurements kept after filtering", "activity_type"),
		MeasurementSkip: c.RegisterCounter("measurements_skipped_total", "Measurements dropped during filtering", "reason"),

		CollaboratorCalls:    c.RegisterCounter("collaborator_calls_total", "Calls to external data sources", "source", "operation", "outcome"),
		CollaboratorDuration: c.RegisterHistogram("collaborator_call_duration_seconds", "External call latency", CollaboratorDurationBuckets, "source", "operation"),
		CacheHits:            c.RegisterCounter("cache_hits_total", "Cache hits", "cache"),
		CacheMisses:          c.RegisterCounter("cache_misses_total", "Cache misses", "cache"),

		HTTPRequests:        c.RegisterCounter("http_requests_total", "HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: c.RegisterHistogram("http_request_duration_seconds", "HTTP request latency", HTTPDurationBuckets, "method", "path"),
		QueueMessages:       c.RegisterCounter("queue_messages_total", "Queue messages handled", "topic", "outcome"),
		QueueDuration:       c.RegisterHistogram("queue_message_duration_seconds", "Queue message handling latency", JobDurationBuckets, "topic"),

		Errors: c.RegisterCounter("errors_total", "Errors by component and code", "component", "code"),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *AppMetrics) RecordJobSubmitted(reused bool) {
	if m == nil {
		return
	}
	m.JobsSubmitted.WithLabelValues(strconv.FormatBool(reused)).Inc()
}

func (m *AppMetrics) RecordTransition(status string) {
	if m == nil {
		return
	}
	m.JobTransitions.WithLabelValues(status).Inc()
}

func (m *AppMetrics) RecordJobFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobDuration.WithLabelValues(status).Observe(d.Seconds())
}

// JobStarted bumps the in-flight gauge and returns the matching decrement.
func (m *AppMetrics) JobStarted(worker string) func() {
	if m == nil {
		return func() {}
	}
	g := m.JobsInFlight.WithLabelValues(worker)
	g.Inc()
	return g.Dec
}

// RecordCompound counts one processed compound. role is primary or similar.
func (m *AppMetrics) RecordCompound(role string, err error) {
	if m == nil {
		return
	}
	m.CompoundsTotal.WithLabelValues(role, outcome(err)).Inc()
}

func (m *AppMetrics) RecordSimilarFound(n int) {
	if m == nil {
		return
	}
	m.SimilarFound.WithLabelValues().Observe(float64(n))
}

// RecordMeasurements adds kept counts per activity type and skipped counts per reason.
func (m *AppMetrics) RecordMeasurements(kept map[string]int, skipped map[string]int) {
	if m == nil {
		return
	}
	for typ, n := range kept {
		m.Measurements.WithLabelValues(typ).Add(float64(n))
	}
	for reason, n := range skipped {
		m.MeasurementSkip.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *AppMetrics) RecordCollaboratorCall(source, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.CollaboratorCalls.WithLabelValues(source, op, outcome(err)).Inc()
	m.CollaboratorDuration.WithLabelValues(source, op).Observe(d.Seconds())
}

func (m *AppMetrics) RecordCacheAccess(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cache).Inc()
}

func (m *AppMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *AppMetrics) RecordQueueMessage(topic string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.QueueMessages.WithLabelValues(topic, outcome(err)).Inc()
	m.QueueDuration.WithLabelValues(topic).Observe(d.Seconds())
}

func (m *AppMetrics) RecordError(component, code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component, code).Inc()
}

//Personal.AI order the ending
