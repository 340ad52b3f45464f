package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/logging"
)

// Services bundles the ingress adapter's dependencies (§4.G).
type Services struct {
	Holds        HoldCreator
	HoldReads    HoldReader
	Orders       OrderCreator
	OrderReads   OrderReader
	Products     ProductReader
	ProductAdmin ProductCreator
	Webhooks     WebhookHandler
	ReaperAdmin  ReaperRunner
	Logger       logging.Logger
}

// NewRouter wires every route named in spec.md §6 plus the ADDED
// read/admin routes from SPEC_FULL.md.
func NewRouter(svc Services) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/", NotFoundHandler())
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/holds", HandleCreateHold(svc.Holds))
	mux.Handle("/holds/", HandleGetHold(svc.HoldReads))

	mux.Handle("/orders", HandleCreateOrder(svc.Orders))
	mux.Handle("/orders/", HandleGetOrder(svc.OrderReads))

	mux.Handle("/products/", HandleGetProduct(svc.Products))

	mux.Handle("/payments/webhook", HandlePaymentWebhook(svc.Webhooks))

	mux.Handle("/admin/products", HandleAdminCreateProduct(svc.ProductAdmin))
	mux.Handle("/admin/reaper/run-once", HandleAdminReaperRunOnce(svc.ReaperAdmin))

	var handler http.Handler = mux
	handler = RequestLogger(handler, svc.Logger)
	return handler
}
