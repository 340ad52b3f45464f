package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/NaderNabil1/Flash-Sale-Concurrency-and-Correctness/internal/domain"
)

// ProductReader is the minimal interface needed to read a product.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (domain.Product, error)
}

// ProductCreator is the minimal interface needed for admin product seeding.
type ProductCreator interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
}

// HandleGetProduct returns an HTTP handler for GET /products/{id}.
func HandleGetProduct(svc ProductReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		id, ok := pathSegment(r.URL.Path, "products")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrProductNotFound):
				writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, productResponse{
			ID:             product.ID,
			Name:           product.Name,
			TotalStock:     product.TotalStock,
			AvailableStock: product.AvailableStock,
			PriceCents:     product.PriceCents,
		})
	}
}

// HandleAdminCreateProduct returns an HTTP handler for POST /admin/products.
func HandleAdminCreateProduct(svc ProductCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createProductRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, codeProductNameRequired, domain.ErrProductNameRequired.Error())
			return
		}
		if req.TotalStock < 0 {
			writeError(w, http.StatusBadRequest, codeInvalidQuantity, domain.ErrInvalidQuantity.Error())
			return
		}

		product, err := svc.CreateProduct(r.Context(), domain.Product{
			Name:       req.Name,
			TotalStock: req.TotalStock,
			PriceCents: req.PriceCents,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, productResponse{
			ID:             product.ID,
			Name:           product.Name,
			TotalStock:     product.TotalStock,
			AvailableStock: product.AvailableStock,
			PriceCents:     product.PriceCents,
		})
	}
}

type createProductRequest struct {
	Name       string `json:"name"`
	TotalStock int    `json:"total_stock"`
	PriceCents int64  `json:"price_cents"`
}

type productResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TotalStock     int    `json:"total_stock"`
	AvailableStock int    `json:"available_stock"`
	PriceCents     int64  `json:"price_cents"`
}

// pathSegment extracts the id segment from a /{resource}/{id} path.
func pathSegment(path, resource string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != resource || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
