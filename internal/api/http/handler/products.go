package handler

import (
	"net/http"

	"github.com/dtroode/pastry-storefront/internal/logger"
)

// Products serves the shop page catalog.
type Products struct {
	catalog CatalogService
	logger  *logger.Logger
}

func NewProducts(catalog CatalogService, logger *logger.Logger) *Products {
	return &Products{catalog: catalog, logger: logger}
}

// List returns the live catalog.
func (h *Products) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}
