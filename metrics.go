package burn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for training and forecasting. A
// nil *Metrics records nothing.
type Metrics struct {
	Epochs           prometheus.Counter
	TrainingLoss     prometheus.Gauge
	ValidationLoss   prometheus.Gauge
	TrainingDuration prometheus.Histogram
	TrainingFailures prometheus.Counter
	TrainingRuns     *prometheus.CounterVec
	Forecasts        prometheus.Counter
	ForecastSteps    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := Metrics{
		Epochs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burn_training_epochs_total",
			Help: "Number of completed training epochs",
		}),
		TrainingLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "burn_training_loss",
			Help: "Training loss of the most recent epoch",
		}),
		ValidationLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "burn_validation_loss",
			Help: "Validation loss of the most recent epoch",
		}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "burn_training_duration_seconds",
			Help:    "Wall time of completed training runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		TrainingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burn_training_failures_total",
			Help: "Training runs aborted by a non-finite loss",
		}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "burn_training_runs_total",
			Help: "Training runs by outcome",
		}, []string{"outcome"}),
		Forecasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burn_forecasts_total",
			Help: "Number of forecasts produced",
		}),
		ForecastSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "burn_forecast_steps_total",
			Help: "Number of autoregressive model steps taken",
		}),
	}

	reg.MustRegister(m.Epochs, m.TrainingLoss, m.ValidationLoss, m.TrainingDuration,
		m.TrainingFailures, m.TrainingRuns, m.Forecasts, m.ForecastSteps)

	return &m
}

func (m *Metrics) epoch(p Progress) {
	if m == nil {
		return
	}

	m.Epochs.Inc()
	m.TrainingLoss.Set(p.TrainingLoss)
	m.ValidationLoss.Set(p.ValidationLoss)
}

func (m *Metrics) trained(d time.Duration) {
	if m == nil {
		return
	}

	m.TrainingDuration.Observe(d.Seconds())
}

func (m *Metrics) trainingFailed() {
	if m == nil {
		return
	}

	m.TrainingFailures.Inc()
}

func (m *Metrics) run(outcome string) {
	if m == nil {
		return
	}

	m.TrainingRuns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) forecast(steps int) {
	if m == nil {
		return
	}

	m.Forecasts.Inc()
	m.ForecastSteps.Add(float64(steps))
}
