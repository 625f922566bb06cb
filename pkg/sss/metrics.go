package sss

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus counters shared by one or more decoding
// pipelines.
type Metrics struct {
	recordsDecoded    prometheus.Counter
	recordsSkipped    *prometheus.CounterVec
	recordsAborted    *prometheus.CounterVec
	subrecordsDecoded *prometheus.CounterVec
	bytesRead         prometheus.Counter
}

// NewMetrics creates and registers decode metrics. A nil registerer uses
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		recordsDecoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "pat_records_decoded_total",
			Help: "Total number of records that passed checksum validation",
		}),
		recordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pat_records_skipped_total",
			Help: "Total number of records skipped before decoding",
		}, []string{"reason"}),
		recordsAborted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pat_records_aborted_total",
			Help: "Total number of records abandoned mid-decode",
		}, []string{"reason"}),
		subrecordsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pat_subrecords_decoded_total",
			Help: "Total number of decoded sub-records",
		}, []string{"label"}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "pat_stream_bytes_read_total",
			Help: "Total number of stream bytes consumed",
		}),
	}
}

// RecordDecoded counts a record that passed checksum validation.
func (m *Metrics) RecordDecoded() {
	m.recordsDecoded.Inc()
}

// RecordSkipped counts a record skipped before decoding began.
func (m *Metrics) RecordSkipped(reason string) {
	m.recordsSkipped.WithLabelValues(reason).Inc()
}

// RecordAborted counts a record abandoned partway through decoding.
func (m *Metrics) RecordAborted(reason string) {
	m.recordsAborted.WithLabelValues(reason).Inc()
}

// SubrecordDecoded counts one decoded sub-record by label.
func (m *Metrics) SubrecordDecoded(label string) {
	m.subrecordsDecoded.WithLabelValues(label).Inc()
}

// BytesRead counts stream bytes consumed by the frame reader.
func (m *Metrics) BytesRead(n int) {
	m.bytesRead.Add(float64(n))
}
