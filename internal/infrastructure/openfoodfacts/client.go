// Package openfoodfacts provides the Open Food Facts catalog client
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/infrastructure/config"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

const (
	DefaultBaseURL   = "https://world.openfoodfacts.org"
	defaultUserAgent = "Pantry/1.0 (recipe nutrition service)"
	defaultTimeout   = 10 * time.Second
	defaultPageSize  = 20

	kJPerKcal = 4.184
)

// Client implements outbound.CatalogSource against the Open Food Facts API
type Client struct {
	client *resty.Client
	logger *zap.Logger
}

// NewClient creates a new Open Food Facts client
func NewClient(cfg config.CatalogConfig, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{client: client, logger: logger.Named("openfoodfacts")}
}

var _ outbound.CatalogSource = (*Client)(nil)

// HTTPClient exposes the transport, e.g. for httpmock.
func (c *Client) HTTPClient() *http.Client {
	return c.client.GetClient()
}

// Open Food Facts API structures
type productResponse struct {
	Status  int             `json:"status"`
	Code    string          `json:"code"`
	Product json.RawMessage `json:"product"`
}

type searchResponse struct {
	Count    int               `json:"count"`
	Products []json.RawMessage `json:"products"`
}

type product struct {
	Code        string     `json:"code"`
	ProductName string     `json:"product_name"`
	NameEN      string     `json:"product_name_en"`
	Brands      string     `json:"brands"`
	ImageURL    string     `json:"image_url"`
	Nutriments  nutriments `json:"nutriments"`
}

type nutriments struct {
	EnergyKcal flexFloat `json:"energy-kcal_100g"`
	EnergyKJ   flexFloat `json:"energy_100g"`
	Proteins   flexFloat `json:"proteins_100g"`
	Fat        flexFloat `json:"fat_100g"`
	Carbs      flexFloat `json:"carbohydrates_100g"`
}

// flexFloat accepts numbers and numeric strings; the catalog emits both.
type flexFloat struct {
	Value float64
	Set   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Free text such as "traces" is treated as missing.
		return nil
	}
	f.Value, f.Set = v, true
	return nil
}

func (p product) name() string {
	if name := strings.TrimSpace(p.ProductName); name != "" {
		return name
	}
	return strings.TrimSpace(p.NameEN)
}

func (n nutriments) macros() catalog.Macros {
	kcal := n.EnergyKcal.Value
	if !n.EnergyKcal.Set && n.EnergyKJ.Set {
		kcal = n.EnergyKJ.Value / kJPerKcal
	}
	return catalog.Macros{
		Calories: clamp(kcal),
		Protein:  clamp(n.Proteins.Value),
		Fat:      clamp(n.Fat.Value),
		Carbs:    clamp(n.Carbs.Value),
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func (p product) external(fallbackCode string, raw []byte) outbound.ExternalProduct {
	code := strings.TrimSpace(p.Code)
	if code == "" {
		code = fallbackCode
	}
	return outbound.ExternalProduct{
		Code: code,
		Details: catalog.ProductDetails{
			Name:     p.name(),
			Brand:    strings.TrimSpace(p.Brands),
			Barcode:  code,
			Macros:   p.Nutriments.macros(),
			ImageURL: strings.TrimSpace(p.ImageURL),
		},
		Raw: raw,
	}
}

// FetchProduct looks a product up by barcode. Unknown barcodes yield
// outbound.ErrNotInCatalog.
func (c *Client) FetchProduct(ctx context.Context, barcode string) (*outbound.ExternalProduct, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("barcode", barcode).
		Get("/api/v0/product/{barcode}.json")
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts product request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, outbound.ErrNotInCatalog
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("openfoodfacts product request: unexpected status %d", resp.StatusCode())
	}

	var body productResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse openfoodfacts product: %w", err)
	}
	if body.Status != 1 || len(body.Product) == 0 {
		return nil, outbound.ErrNotInCatalog
	}

	var p product
	if err := json.Unmarshal(body.Product, &p); err != nil {
		return nil, fmt.Errorf("failed to parse openfoodfacts product: %w", err)
	}
	if p.name() == "" {
		c.logger.Debug("Catalog product has no name", zap.String("barcode", barcode))
	}

	ext := p.external(barcode, resp.Body())
	return &ext, nil
}

// SearchProducts runs a full-text search or, when q.Brand is set, a brand
// search. Records without a code are skipped.
func (c *Client) SearchProducts(ctx context.Context, q outbound.ExternalQuery) ([]outbound.ExternalProduct, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	params := map[string]string{
		"json":      "1",
		"page_size": strconv.Itoa(pageSize),
	}
	if q.Brand != "" {
		params["action"] = "process"
		params["tagtype_0"] = "brands"
		params["tag_contains_0"] = "contains"
		params["tag_0"] = q.Brand
	} else {
		params["search_terms"] = q.Terms
		params["search_simple"] = "1"
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/cgi/search.pl")
	if err != nil {
		return nil, fmt.Errorf("openfoodfacts search request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("openfoodfacts search request: unexpected status %d", resp.StatusCode())
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to parse openfoodfacts search: %w", err)
	}

	products := make([]outbound.ExternalProduct, 0, len(body.Products))
	for _, raw := range body.Products {
		var p product
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Debug("Skipping malformed search result", zap.Error(err))
			continue
		}
		if strings.TrimSpace(p.Code) == "" {
			continue
		}
		products = append(products, p.external("", []byte(raw)))
	}

	c.logger.Debug("Catalog search finished",
		zap.String("terms", q.Terms),
		zap.String("brand", q.Brand),
		zap.Int("results", len(products)),
	)
	return products, nil
}

// Ping checks that the catalog answers at all.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Head("/")
	if err != nil {
		return err
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return fmt.Errorf("openfoodfacts: unexpected status %d", resp.StatusCode())
	}
	return nil
}
