package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etix_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	TicketsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etix_tickets_issued_total",
			Help: "Tickets issued across all bookings",
		},
	)

	CapacityRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etix_capacity_retries_total",
			Help: "Booking attempts retried after a capacity conflict",
		},
	)

	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etix_scans_total",
			Help: "Ticket scans by result",
		},
		[]string{"result"},
	)

	WorkerTasksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etix_worker_tasks_dropped_total",
			Help: "Background tasks dropped because the queue was full",
		},
	)
)
