package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Invoice batch metrics
	invoiceBatchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_batch_runs_total",
		Help: "Total number of invoice batch runs",
	}, []string{
		"status", // complete, partial, empty
	})

	invoicesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invoices_created_total",
		Help: "Total invoices created by batch runs",
	})

	schedulesBilledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedules_billed_total",
		Help: "Total due schedules converted to invoices",
	})

	scheduleConversionFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedule_conversion_failures_total",
		Help: "Total due schedules whose invoice conversion failed",
	})

	billedAmountCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billed_amount_cents_total",
		Help: "Total invoiced amount in cents",
	})

	invoiceBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "invoice_batch_duration_seconds",
		Help: "Duration of an invoice batch run",
		// Batch runs walk one transaction per schedule, so minutes are possible
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})

	// Schedule generation metrics
	schedulesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedules_generated_total",
		Help: "Total due schedules generated",
	}, []string{
		"trigger", // initial, continuation
	})

	// Payment metrics
	schedulePaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_payments_total",
		Help: "Total payments recorded against due schedules",
	}, []string{
		"result", // full, partial
	})

	// Lifecycle sweep metrics
	sweepProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_processed_total",
		Help: "Total subscriptions processed by lifecycle sweeps",
	}, []string{
		"sweep",  // auto_renewal, expiry, overdue
		"result", // processed, failed
	})

	// Consistency repair metrics
	repairFindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_findings_total",
		Help: "Total inconsistencies found by the repair engine",
	}, []string{
		"check",
	})

	repairFixesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repair_fixes_total",
		Help: "Total inconsistencies fixed by the repair engine",
	}, []string{
		"check",
	})
)

// RecordInvoiceBatch records the outcome of one invoice batch run
func RecordInvoiceBatch(status string, invoices, billed, failed int, amountCents int64, duration float64) {
	invoiceBatchRunsTotal.WithLabelValues(status).Inc()
	invoicesCreatedTotal.Add(float64(invoices))
	schedulesBilledTotal.Add(float64(billed))
	scheduleConversionFailuresTotal.Add(float64(failed))
	billedAmountCents.Add(float64(amountCents))
	invoiceBatchDuration.Observe(duration)
}

// RecordSchedulesGenerated records generated due schedules by trigger
func RecordSchedulesGenerated(trigger string, count int) {
	schedulesGeneratedTotal.WithLabelValues(trigger).Add(float64(count))
}

// RecordSchedulePayment records a payment against a due schedule
func RecordSchedulePayment(result string) {
	schedulePaymentsTotal.WithLabelValues(result).Inc()
}

// RecordSweep records the outcome of one lifecycle sweep
func RecordSweep(sweep string, processed, failed int) {
	sweepProcessedTotal.WithLabelValues(sweep, "processed").Add(float64(processed))
	sweepProcessedTotal.WithLabelValues(sweep, "failed").Add(float64(failed))
}

// RecordRepairCheck records one repair check's findings and fixes
func RecordRepairCheck(check string, found, fixed int) {
	repairFindingsTotal.WithLabelValues(check).Add(float64(found))
	repairFixesTotal.WithLabelValues(check).Add(float64(fixed))
}
