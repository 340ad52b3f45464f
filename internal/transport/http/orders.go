package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// OrderCreator is the minimal interface needed to create an order from a hold.
type OrderCreator interface {
	CreateOrder(ctx context.Context, holdID string) (domain.Order, error)
}

// OrderReader is the minimal interface needed to read an order.
type OrderReader interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
}

// HandleCreateOrder returns an HTTP handler for POST /orders.
func HandleCreateOrder(svc OrderCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.HoldID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		order, err := svc.CreateOrder(r.Context(), req.HoldID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrHoldNotFound):
				writeError(w, http.StatusUnprocessableEntity, codeHoldNotFound, err.Error())
			case errors.Is(err, domain.ErrHoldNotUsable):
				writeError(w, http.StatusUnprocessableEntity, codeHoldNotUsable, err.Error())
			case errors.Is(err, domain.ErrHoldAlreadyConsumed):
				writeError(w, http.StatusUnprocessableEntity, codeHoldAlreadyConsumed, err.Error())
			case errors.Is(err, domain.ErrTransientConflict):
				writeError(w, http.StatusConflict, codeTransientConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, orderResponse{
			ID:          order.ID,
			HoldID:      order.HoldID,
			ProductID:   order.ProductID,
			Qty:         order.Qty,
			AmountCents: order.AmountCents,
			Status:      string(order.Status),
		})
	}
}

// HandleGetOrder returns an HTTP handler for GET /orders/{id}.
func HandleGetOrder(svc OrderReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := pathSegment(r.URL.Path, "orders")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrOrderNotFound):
				writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, orderResponse{
			ID:          order.ID,
			HoldID:      order.HoldID,
			ProductID:   order.ProductID,
			Qty:         order.Qty,
			AmountCents: order.AmountCents,
			Status:      string(order.Status),
		})
	}
}

type createOrderRequest struct {
	HoldID string `json:"hold_id"`
}

type orderResponse struct {
	ID          string `json:"id"`
	HoldID      string `json:"hold_id"`
	ProductID   string `json:"product_id"`
	Qty         int    `json:"qty"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}
