package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationOutcomes counts createReservation results by outcome
	ReservationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_reservation_outcomes_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"}, // created, existing, not_available, not_eligible, error
	)

	// SweepReleased counts reservations released by the expiry sweep
	SweepReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_sweep_released_total",
			Help: "Reservations released by the expiry sweep",
		},
	)

	// SyncApplied counts discrepancy corrections applied to the local ledger
	SyncApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_sync_applied_total",
			Help: "Discrepancy corrections applied during reconciliation",
		},
	)

	// SyncAlarms counts read-after-write consistency alarms raised by syncOne
	SyncAlarms = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campaign_sync_alarms_total",
			Help: "Read-after-write consistency alarms raised during reconciliation",
		},
	)

	// SyncDuration tracks the latency of full reconciliation runs
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "campaign_sync_duration_seconds",
			Help: "Duration of syncAll runs in seconds",
			Buckets: []float64{
				0.01, // 10ms
				0.05, // 50ms
				0.1,  // 100ms
				0.25, // 250ms
				0.5,  // 500ms
				1.0,  // 1s
				2.5,  // 2.5s
				5.0,  // 5s
				10.0, // 10s
				30.0, // 30s
			},
		},
		[]string{"status"}, // success, partial or failed
	)
)

// RecordReservationOutcome increments the reservation outcome counter
func RecordReservationOutcome(outcome string) {
	ReservationOutcomes.WithLabelValues(outcome).Inc()
}

// RecordSyncDuration records the duration of a syncAll run
func RecordSyncDuration(status string, seconds float64) {
	SyncDuration.WithLabelValues(status).Observe(seconds)
}
