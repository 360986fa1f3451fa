package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/infrastructure/http/middleware"
	apperrors "github.com/alchemorsel/pantry/pkg/errors"
)

// newTestRouter returns a router with the middleware that renders handler
// errors, so responses look like they do in production.
func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	mw := middleware.New(&config.Config{}, zap.NewNop(), nil)
	r := gin.New()
	r.Use(mw.RequestID(), mw.ErrorHandler())
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorDetails {
	t.Helper()
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestBindingErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    apperrors.ErrorCode
		details string
	}{
		{"MalformedJSON", `{"title":`, apperrors.CodeBadRequest, ""},
		{"MissingTitle", `{"steps":["a"]}`, apperrors.CodeValidationFailed, "Title is required"},
		{"BadImageURL", `{"title":"Soup","imageUrl":"nope"}`, apperrors.CodeValidationFailed, "ImageURL must be a valid URL"},
		{"ZeroQuantity", `{"title":"Soup","ingredients":[{"ref":"product:1","quantity":0}]}`, apperrors.CodeValidationFailed, "Ingredients[0].Quantity must be greater than 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter()
			r.POST("/recipes", func(c *gin.Context) {
				var req RecipeRequest
				if bindJSON(c, &req) {
					c.Status(http.StatusOK)
				}
			})

			w := doJSON(r, http.MethodPost, "/recipes", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			details := decodeError(t, w)
			require.Equal(t, tt.code, details.Code)
			require.NotEmpty(t, details.RequestID)
			if tt.details != "" {
				require.Contains(t, details.Details, tt.details)
			}
		})
	}
}

func TestParams(t *testing.T) {
	r := newTestRouter()
	r.GET("/products/:id", func(c *gin.Context) {
		if id, ok := uintParam(c, "id"); ok {
			c.JSON(http.StatusOK, gin.H{"id": id})
		}
	})
	r.GET("/custom/:id", func(c *gin.Context) {
		if _, ok := uuidParam(c, "id"); ok {
			c.Status(http.StatusOK)
		}
	})

	for path, want := range map[string]int{
		"/products/12":                                 http.StatusOK,
		"/products/0":                                  http.StatusBadRequest,
		"/products/-3":                                 http.StatusBadRequest,
		"/products/abc":                                http.StatusBadRequest,
		"/custom/8c5f3a2e-3f0e-4d6b-9a57-2c9b1f0e4d11": http.StatusOK,
		"/custom/not-a-uuid":                           http.StatusBadRequest,
	} {
		w := doJSON(r, http.MethodGet, path, nil)
		require.Equal(t, want, w.Code, path)
	}
}
