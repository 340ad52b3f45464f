package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/app"
	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

const idempotencyHeader = "Idempotency-Key"

// WebhookHandler is the minimal interface needed to apply a payment webhook.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, idempotencyKey, orderID string, result domain.WebhookResult, payload []byte) (app.HandleWebhookResult, error)
}

// HandlePaymentWebhook returns an HTTP handler for POST /payments/webhook.
func HandlePaymentWebhook(svc WebhookHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		key := r.Header.Get(idempotencyHeader)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		var req paymentWebhookRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if key == "" {
			key = req.IdempotencyKey
		}
		if key == "" {
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, domain.ErrIdempotencyKeyRequired.Error())
			return
		}
		if req.OrderID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		result, err := svc.HandleWebhook(r.Context(), key, req.OrderID, domain.WebhookResult(req.Result), body)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrOrderNotFound):
				writeError(w, http.StatusUnprocessableEntity, codeOrderNotFound, err.Error())
			case errors.Is(err, domain.ErrIdempotencyKeyConflict):
				writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
			case errors.Is(err, domain.ErrIdempotencyKeyRequired):
				writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
			case errors.Is(err, domain.ErrTransientConflict):
				writeError(w, http.StatusConflict, codeTransientConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, paymentWebhookResponse{
			OrderID:        result.OrderID,
			OrderStatus:    string(result.OrderStatus),
			IdempotencyKey: result.IdempotencyKey,
		})
	}
}

type paymentWebhookRequest struct {
	OrderID        string `json:"order_id"`
	Result         string `json:"result"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type paymentWebhookResponse struct {
	OrderID        string `json:"order_id"`
	OrderStatus    string `json:"order_status"`
	IdempotencyKey string `json:"idempotency_key"`
}
