// Package metrics exposes the prometheus counters and gauges the
// engines update, grounded on wangyingjie930-jaeger_demo's use of
// prometheus/client_golang.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Registry struct {
	HoldsCreated      prometheus.Counter
	HoldsExpired      prometheus.Counter
	HoldsInsufficient prometheus.Counter
	OrdersCreated     prometheus.Counter
	OrdersPaid        prometheus.Counter
	OrdersCancelled   prometheus.Counter
	WebhooksReplayed  prometheus.Counter
	WebhooksRecorded  prometheus.Counter
	ProductStock      *prometheus.GaugeVec
}

// New registers the flash-sale metrics on reg and returns a handle.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		HoldsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_holds_created_total",
			Help: "Holds successfully created.",
		}),
		HoldsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_holds_expired_total",
			Help: "Holds reaped after TTL expiry.",
		}),
		HoldsInsufficient: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_holds_insufficient_stock_total",
			Help: "Hold creation attempts rejected for insufficient stock.",
		}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_orders_created_total",
			Help: "Orders created from a Hold.",
		}),
		OrdersPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_orders_paid_total",
			Help: "Orders transitioned to paid by a webhook.",
		}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_orders_cancelled_total",
			Help: "Orders transitioned to cancelled by a webhook.",
		}),
		WebhooksReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_webhooks_replayed_total",
			Help: "Webhook deliveries observed as a duplicate of a known idempotency key.",
		}),
		WebhooksRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashsale_webhooks_recorded_total",
			Help: "Webhook deliveries recorded for the first time.",
		}),
		ProductStock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "flashsale_product_available_stock",
			Help: "Available_stock per product. Registered only; no engine sets it, so it exports no samples.",
		}, []string{"product_id"}),
	}
	reg.MustRegister(
		r.HoldsCreated, r.HoldsExpired, r.HoldsInsufficient,
		r.OrdersCreated, r.OrdersPaid, r.OrdersCancelled,
		r.WebhooksReplayed, r.WebhooksRecorded, r.ProductStock,
	)
	return r
}
