package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
	"github.com/alchemorsel/pantry/test/testutils"
)

type recordingObserver struct {
	syncErrs []error
	events   []inbound.StreamEventType
}

func (o *recordingObserver) SyncCompleted(_ *inbound.SyncReport, err error) {
	o.syncErrs = append(o.syncErrs, err)
}

func (o *recordingObserver) StreamEvent(event inbound.StreamEventType) {
	o.events = append(o.events, event)
}

// streamRecorder adds the CloseNotify gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

type sseEvent struct {
	name string
	data string
}

func parseSSE(body string) []sseEvent {
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		if strings.TrimSpace(block) == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			if v, ok := strings.CutPrefix(line, "event:"); ok {
				ev.name = strings.TrimSpace(v)
			}
			if v, ok := strings.CutPrefix(line, "data:"); ok {
				ev.data = strings.TrimSpace(v)
			}
		}
		events = append(events, ev)
	}
	return events
}

type CatalogHandlersTestSuite struct {
	suite.Suite
	service  *testutils.MockCatalogService
	observer *recordingObserver
	router   *gin.Engine
}

func (s *CatalogHandlersTestSuite) SetupSubTest() {
	s.service = &testutils.MockCatalogService{}
	s.observer = &recordingObserver{}
	h := NewCatalogHandlers(s.service, s.observer, zap.NewNop())

	s.router = newTestRouter()
	s.router.GET("/api/v1/products/:id", h.GetProduct)
	s.router.GET("/api/v1/products/barcode/:barcode", h.ResolveBarcode)
	s.router.POST("/api/v1/products", h.CreateProduct)
	s.router.POST("/api/v1/products/sync", h.SyncProducts)
	s.router.PUT("/api/v1/products/:id", h.UpdateProduct)
	s.router.DELETE("/api/v1/products/:id", h.DeleteProduct)
	s.router.GET("/api/v1/custom-ingredients/:id", h.GetCustomIngredient)
	s.router.POST("/api/v1/custom-ingredients", h.CreateCustomIngredient)
	s.router.PUT("/api/v1/custom-ingredients/:id", h.UpdateCustomIngredient)
	s.router.DELETE("/api/v1/custom-ingredients/:id", h.DeleteCustomIngredient)
	s.router.GET("/api/v1/ingredients/search/stream", h.StreamSearch)
}

func (s *CatalogHandlersTestSuite) TearDownSubTest() {
	s.service.AssertExpectations(s.T())
}

func (s *CatalogHandlersTestSuite) TestProducts() {
	s.Run("Get_ShouldReturnProduct", func() {
		s.service.On("GetProduct", mock.Anything, uint(7)).
			Return(&inbound.ProductDTO{ID: 7, Name: "Rolled Oats", Source: catalog.SourceManual}, nil)

		w := doJSON(s.router, http.MethodGet, "/api/v1/products/7", nil)

		s.Require().Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"name":"Rolled Oats"`)
	})

	s.Run("Create_ShouldReturnCreated", func() {
		// Arrange
		want := inbound.ProductCommand{
			Name:    "Skyr",
			Barcode: "5701234567890",
			Macros:  catalog.Macros{Calories: 63, Protein: 11, Fat: 0.2, Carbs: 4},
		}
		s.service.On("CreateProduct", mock.Anything, want).
			Return(&inbound.ProductDTO{ID: 9, Name: "Skyr", Barcode: "5701234567890"}, nil)

		// Act
		w := doJSON(s.router, http.MethodPost, "/api/v1/products",
			`{"name":"Skyr","barcode":"5701234567890","macros":{"calories":63,"protein":11,"fat":0.2,"carbs":4}}`)

		// Assert
		s.Equal(http.StatusCreated, w.Code, w.Body.String())
	})

	s.Run("Create_InvalidFields_ShouldListEveryField", func() {
		w := doJSON(s.router, http.MethodPost, "/api/v1/products",
			`{"name":"Skyr","barcode":"57ab","macros":{"calories":-1}}`)

		s.Require().Equal(http.StatusBadRequest, w.Code)
		details := decodeError(s.T(), w)
		s.Contains(details.Details, "Barcode")
		s.Contains(details.Details, "Macros.Calories")
		s.Len(details.Metadata["validation_errors"], 2)
	})

	s.Run("Update_TakenBarcode_ShouldReturnConflict", func() {
		s.service.On("UpdateProduct", mock.Anything, uint(3), mock.Anything).
			Return(nil, apperrors.NewBarcodeTakenError("5701234567890"))

		w := doJSON(s.router, http.MethodPut, "/api/v1/products/3", `{"name":"Skyr","barcode":"5701234567890"}`)

		s.Equal(http.StatusConflict, w.Code)
		s.Equal(apperrors.CodeBarcodeTaken, decodeError(s.T(), w).Code)
	})

	s.Run("Delete_InUse_ShouldReturnConflict", func() {
		s.service.On("DeleteProduct", mock.Anything, uint(3)).
			Return(apperrors.NewProductInUseError("product", "3"))

		w := doJSON(s.router, http.MethodDelete, "/api/v1/products/3", nil)

		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("Delete_ShouldReturnNoContent", func() {
		s.service.On("DeleteProduct", mock.Anything, uint(4)).Return(nil)

		w := doJSON(s.router, http.MethodDelete, "/api/v1/products/4", nil)

		s.Equal(http.StatusNoContent, w.Code)
	})
}

func (s *CatalogHandlersTestSuite) TestResolveBarcode() {
	s.Run("Known_ShouldReturnProduct", func() {
		s.service.On("ResolveByBarcode", mock.Anything, "3017620422003").
			Return(&inbound.ProductDTO{ID: 1, Name: "Nutella", Source: catalog.SourceOpenFoodFacts}, nil)

		w := doJSON(s.router, http.MethodGet, "/api/v1/products/barcode/3017620422003", nil)

		s.Require().Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"name":"Nutella"`)
	})

	s.Run("Unknown_ShouldReturnNotFound", func() {
		s.service.On("ResolveByBarcode", mock.Anything, "0000000000000").Return(nil, nil)

		w := doJSON(s.router, http.MethodGet, "/api/v1/products/barcode/0000000000000", nil)

		s.Equal(http.StatusNotFound, w.Code)
		s.Equal(apperrors.CodeProductNotFound, decodeError(s.T(), w).Code)
	})

	s.Run("Malformed_ShouldReturnBadRequest", func() {
		s.service.On("ResolveByBarcode", mock.Anything, "abc").
			Return(nil, apperrors.NewValidationError("barcode must be 8 to 14 digits"))

		w := doJSON(s.router, http.MethodGet, "/api/v1/products/barcode/abc", nil)

		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *CatalogHandlersTestSuite) TestSyncProducts() {
	s.Run("Completed_ShouldReturnReport", func() {
		report := &inbound.SyncReport{
			UpdatedNames: []string{"Nutella"},
			Failures:     []inbound.SyncFailure{{ID: 2, Name: "Ghost", Reason: "not found in catalog"}},
		}
		s.service.On("SyncProducts", mock.Anything).Return(report, nil)

		w := doJSON(s.router, http.MethodPost, "/api/v1/products/sync", nil)

		s.Require().Equal(http.StatusOK, w.Code)
		var body inbound.SyncReport
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
		s.Equal(*report, body)
		s.Equal([]error{nil}, s.observer.syncErrs)
	})

	s.Run("Interrupted_ShouldFailAndNotify", func() {
		s.service.On("SyncProducts", mock.Anything).
			Return(&inbound.SyncReport{UpdatedNames: []string{"Nutella"}}, context.Canceled)

		w := doJSON(s.router, http.MethodPost, "/api/v1/products/sync", nil)

		s.Equal(http.StatusInternalServerError, w.Code)
		s.Require().Len(s.observer.syncErrs, 1)
		s.ErrorIs(s.observer.syncErrs[0], context.Canceled)
	})
}

func (s *CatalogHandlersTestSuite) TestCustomIngredients() {
	s.Run("Create_ShouldReturnCreated", func() {
		id := uuid.New()
		s.service.On("CreateCustomIngredient", mock.Anything, inbound.CustomIngredientCommand{
			Name:   "Basil Pesto",
			Macros: catalog.Macros{Calories: 458, Protein: 5.1, Fat: 47, Carbs: 4.3},
		}).Return(&inbound.CustomIngredientDTO{ID: id, Name: "Basil Pesto"}, nil)

		w := doJSON(s.router, http.MethodPost, "/api/v1/custom-ingredients",
			`{"name":"Basil Pesto","macros":{"calories":458,"protein":5.1,"fat":47,"carbs":4.3}}`)

		s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
		s.Contains(w.Body.String(), id.String())
	})

	s.Run("Get_Missing_ShouldReturnNotFound", func() {
		id := uuid.New()
		s.service.On("GetCustomIngredient", mock.Anything, id).
			Return(nil, apperrors.NewIngredientNotFoundError(id.String()))

		w := doJSON(s.router, http.MethodGet, "/api/v1/custom-ingredients/"+id.String(), nil)

		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("Update_MissingName_ShouldReturnBadRequest", func() {
		w := doJSON(s.router, http.MethodPut, "/api/v1/custom-ingredients/"+uuid.NewString(), `{"macros":{}}`)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("Delete_ShouldReturnNoContent", func() {
		id := uuid.New()
		s.service.On("DeleteCustomIngredient", mock.Anything, id).Return(nil)

		w := doJSON(s.router, http.MethodDelete, "/api/v1/custom-ingredients/"+id.String(), nil)

		s.Equal(http.StatusNoContent, w.Code)
	})
}

func (s *CatalogHandlersTestSuite) TestStreamSearch() {
	s.Run("Events_ShouldBeRelayedInOrder", func() {
		// Arrange
		s.service.On("StreamSearch", mock.Anything, "oats").Return([]inbound.StreamEvent{
			{Type: inbound.EventMessage, Items: []inbound.StreamItem{{ID: "1", Name: "Rolled Oats", Source: inbound.SourceLocal}}},
			{Type: inbound.EventStreamError, Error: &inbound.StreamError{Source: "openfoodfacts", Message: "timeout"}},
			{Type: inbound.EventClose},
		})
		w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

		// Act
		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/search/stream?q=%20oats%20", nil))

		// Assert
		s.Equal(http.StatusOK, w.Code)
		s.Equal("text/event-stream", w.Header().Get("Content-Type"))
		events := parseSSE(w.Body.String())
		s.Require().Len(events, 3)

		s.Equal("message", events[0].name)
		var items []inbound.StreamItem
		s.Require().NoError(json.Unmarshal([]byte(events[0].data), &items))
		s.Equal("Rolled Oats", items[0].Name)

		s.Equal("stream_error", events[1].name)
		s.Contains(events[1].data, "timeout")
		s.Equal("close", events[2].name)

		s.Equal([]inbound.StreamEventType{inbound.EventMessage, inbound.EventStreamError, inbound.EventClose}, s.observer.events)
	})

	s.Run("ProducerGone_ShouldEndStream", func() {
		s.service.On("StreamSearch", mock.Anything, "").Return([]inbound.StreamEvent(nil))
		w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

		s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ingredients/search/stream", nil))

		s.Empty(parseSSE(w.Body.String()))
		s.Empty(s.observer.events)
	})
}

func TestCatalogHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlersTestSuite))
}

func TestNewCatalogHandlers_NilObserver(t *testing.T) {
	h := NewCatalogHandlers(&testutils.MockCatalogService{}, nil, zap.NewNop())
	assert.IsType(t, noopObserver{}, h.observer)
}
