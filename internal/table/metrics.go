package table

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	handsDealtCounter     prometheus.Counter
	handsSettledCounter   prometheus.Counter
	rakeCollectedCounter  prometheus.Counter
	invalidActionCounter  prometheus.Counter
	ledgerFailureCounter  prometheus.Counter
	recoveredPanicCounter prometheus.Counter
	liveTablesGauge       prometheus.Gauge
}

func (m *metrics) HandDealt() {
	m.handsDealtCounter.Inc()
}

func (m *metrics) HandSettled(rake float64) {
	m.handsSettledCounter.Inc()
	if rake > 0 {
		m.rakeCollectedCounter.Add(rake)
	}
}

func (m *metrics) InvalidAction() {
	m.invalidActionCounter.Inc()
}

func (m *metrics) LedgerFailure() {
	m.ledgerFailureCounter.Inc()
}

func (m *metrics) RecoveredPanic() {
	m.recoveredPanicCounter.Inc()
}

func (m *metrics) SetLiveTables(count int) {
	m.liveTablesGauge.Set(float64(count))
}

var Metrics = &metrics{
	handsDealtCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "holdem_hands_dealt_total",
		Help: "Total number of hands dealt",
	}),
	handsSettledCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "holdem_hands_settled_total",
		Help: "Total number of hands settled",
	}),
	rakeCollectedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "holdem_rake_collected_total",
		Help: "Total rake taken from cash pots",
	}),
	invalidActionCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "holdem_invalid_actions_total",
		Help: "Total number of rejected player actions",
	}),
	ledgerFailureCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "holdem_ledger_failures_total",
		Help: "Total number of failed ledger calls",
	}),
	recoveredPanicCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "holdem_table_panics_total",
		Help: "Total number of panics recovered inside table loops",
	}),
	liveTablesGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "holdem_live_tables",
		Help: "Number of tables in the registry",
	}),
}
