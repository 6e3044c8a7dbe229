package metrics

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors.
type Metrics struct {
	Rounds             *prometheus.CounterVec
	WageredAmount      *prometheus.CounterVec
	SettlementFailures *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on the /metrics endpoint.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rounds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wager_rounds_total",
				Help: "Settled wager rounds by result",
			},
			[]string{"result"},
		),
		WageredAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wager_amount_total",
				Help: "Native units moved by settled rounds, by result",
			},
			[]string{"result"},
		),
		SettlementFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wager_settlement_failures_total",
				Help: "Gamble attempts that did not settle, by reason",
			},
			[]string{"reason"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Rounds, m.WageredAmount, m.SettlementFailures, m.HTTPRequests)
	}
	return m
}

// RoundSettled records one settled round that moved amount units.
func (m *Metrics) RoundSettled(result string, amount int64) {
	if m == nil {
		return
	}
	m.Rounds.WithLabelValues(result).Inc()
	m.WageredAmount.WithLabelValues(result).Add(float64(amount))
}

// SettlementFailed records a gamble that was rejected or failed.
func (m *Metrics) SettlementFailed(reason string) {
	if m == nil {
		return
	}
	m.SettlementFailures.WithLabelValues(reason).Inc()
}

// Middleware counts requests by method, matched route and status code.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		return err
	}
}
