package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// HoldCreator is the minimal interface needed to create a hold.
type HoldCreator interface {
	CreateHold(ctx context.Context, productID string, qty int) (domain.Hold, error)
}

// HoldReader is the minimal interface needed to read a hold.
type HoldReader interface {
	GetHold(ctx context.Context, id string) (domain.Hold, error)
}

// HandleCreateHold returns an HTTP handler for POST /holds.
func HandleCreateHold(svc HoldCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, domain.ErrInvalidID.Error())
			return
		}

		hold, err := svc.CreateHold(r.Context(), req.ProductID, req.Qty)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidQuantity):
				writeError(w, http.StatusUnprocessableEntity, codeInvalidQuantity, err.Error())
			case errors.Is(err, domain.ErrProductNotFound):
				writeError(w, http.StatusUnprocessableEntity, codeProductNotFound, err.Error())
			case errors.Is(err, domain.ErrInsufficientStock):
				writeError(w, http.StatusUnprocessableEntity, codeInsufficientStock, err.Error())
			case errors.Is(err, domain.ErrTransientConflict):
				writeError(w, http.StatusConflict, codeTransientConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusCreated, holdResponse{
			ID:        hold.ID,
			ProductID: hold.ProductID,
			Qty:       hold.Qty,
			Status:    string(hold.Status),
			ExpiresAt: formatExpiresAt(hold.ExpiresAt),
		})
	}
}

// HandleGetHold returns an HTTP handler for GET /holds/{id}.
func HandleGetHold(svc HoldReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := pathSegment(r.URL.Path, "holds")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		hold, err := svc.GetHold(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrHoldNotFound):
				writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, holdResponse{
			ID:        hold.ID,
			ProductID: hold.ProductID,
			Qty:       hold.Qty,
			Status:    string(hold.Status),
			ExpiresAt: formatExpiresAt(hold.ExpiresAt),
		})
	}
}

// formatExpiresAt renders expires_at as "YYYY-MM-DD HH:MM:SS" in UTC.
func formatExpiresAt(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

type createHoldRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type holdResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}
