package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/ports/inbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

// CatalogObserver is told about sync runs and every event written to a
// search stream.
type CatalogObserver interface {
	SyncCompleted(report *inbound.SyncReport, err error)
	StreamEvent(event inbound.StreamEventType)
}

type noopObserver struct{}

func (noopObserver) SyncCompleted(*inbound.SyncReport, error) {}
func (noopObserver) StreamEvent(inbound.StreamEventType) {}

// CatalogHandlers handles product, custom ingredient and ingredient search
// requests.
type CatalogHandlers struct {
	catalog  inbound.CatalogService
	logger   *zap.Logger
	observer CatalogObserver
}

// NewCatalogHandlers creates a new catalog handlers instance. observer may
// be nil.
func NewCatalogHandlers(catalog inbound.CatalogService, observer CatalogObserver, logger *zap.Logger) *CatalogHandlers {
	if observer == nil {
		observer = noopObserver{}
	}
	return &CatalogHandlers{catalog: catalog, logger: logger.Named("catalog-api"), observer: observer}
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	Name     string        `json:"name" binding:"required,max=200"`
	Brand    string        `json:"brand" binding:"max=200"`
	Barcode  string        `json:"barcode" binding:"omitempty,numeric,min=8,max=14"`
	Macros   MacrosRequest `json:"macros"`
	ImageURL string        `json:"imageUrl" binding:"omitempty,url"`
}

func (r ProductRequest) toCommand() inbound.ProductCommand {
	return inbound.ProductCommand{
		Name:     r.Name,
		Brand:    r.Brand,
		Barcode:  r.Barcode,
		Macros:   r.Macros.toDomain(),
		ImageURL: r.ImageURL,
	}
}

// CustomIngredientRequest is the body of custom ingredient create and update.
type CustomIngredientRequest struct {
	Name   string        `json:"name" binding:"required,max=200"`
	Macros MacrosRequest `json:"macros"`
}

func (r CustomIngredientRequest) toCommand() inbound.CustomIngredientCommand {
	return inbound.CustomIngredientCommand{Name: r.Name, Macros: r.Macros.toDomain()}
}

// GetProduct handles GET /api/v1/products/:id
func (h *CatalogHandlers) GetProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	dto, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// ResolveBarcode handles GET /api/v1/products/barcode/:barcode. A barcode
// neither stored nor known to the external catalog is a 404.
func (h *CatalogHandlers) ResolveBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	dto, err := h.catalog.ResolveByBarcode(c.Request.Context(), barcode)
	if err != nil {
		fail(c, err)
		return
	}
	if dto == nil {
		fail(c, apperrors.NewProductNotFoundError(barcode))
		return
	}
	c.JSON(http.StatusOK, dto)
}

// CreateProduct handles POST /api/v1/products
func (h *CatalogHandlers) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	dto, err := h.catalog.CreateProduct(c.Request.Context(), req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// UpdateProduct handles PUT /api/v1/products/:id
func (h *CatalogHandlers) UpdateProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	dto, err := h.catalog.UpdateProduct(c.Request.Context(), id, req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// DeleteProduct handles DELETE /api/v1/products/:id
func (h *CatalogHandlers) DeleteProduct(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SyncProducts handles POST /api/v1/products/sync. An interrupted run
// still reports what it managed before failing.
func (h *CatalogHandlers) SyncProducts(c *gin.Context) {
	report, err := h.catalog.SyncProducts(c.Request.Context())
	h.observer.SyncCompleted(report, err)
	if err != nil {
		if report != nil {
			h.logger.Warn("Sync interrupted",
				zap.Int("updated", len(report.UpdatedNames)),
				zap.Int("failed", len(report.Failures)),
				zap.Error(err),
			)
		}
		fail(c, apperrors.Wrap(err, "Sync failed"))
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetCustomIngredient handles GET /api/v1/custom-ingredients/:id
func (h *CatalogHandlers) GetCustomIngredient(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	dto, err := h.catalog.GetCustomIngredient(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// CreateCustomIngredient handles POST /api/v1/custom-ingredients
func (h *CatalogHandlers) CreateCustomIngredient(c *gin.Context) {
	var req CustomIngredientRequest
	if !bindJSON(c, &req) {
		return
	}
	dto, err := h.catalog.CreateCustomIngredient(c.Request.Context(), req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

// UpdateCustomIngredient handles PUT /api/v1/custom-ingredients/:id
func (h *CatalogHandlers) UpdateCustomIngredient(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req CustomIngredientRequest
	if !bindJSON(c, &req) {
		return
	}
	dto, err := h.catalog.UpdateCustomIngredient(c.Request.Context(), id, req.toCommand())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// DeleteCustomIngredient handles DELETE /api/v1/custom-ingredients/:id
func (h *CatalogHandlers) DeleteCustomIngredient(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCustomIngredient(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// StreamSearch handles GET /api/v1/ingredients/search/stream?q=. It relays
// the search events as server-sent events until close. A client that goes
// away cancels the request context, which stops the producer.
func (h *CatalogHandlers) StreamSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	events := h.catalog.StreamSearch(c.Request.Context(), query)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}

		switch ev.Type {
		case inbound.EventMessage:
			c.SSEvent(string(ev.Type), ev.Items)
		case inbound.EventStreamError:
			c.SSEvent(string(ev.Type), ev.Error)
		case inbound.EventClose:
			c.SSEvent(string(ev.Type), "")
		}
		h.observer.StreamEvent(ev.Type)
		return ev.Type != inbound.EventClose
	})
}
