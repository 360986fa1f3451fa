package inbound

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
)

// CatalogService defines product, custom ingredient and external catalog
// use cases.
type CatalogService interface {
	CreateProduct(ctx context.Context, cmd ProductCommand) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uint, cmd ProductCommand) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uint) error
	GetProduct(ctx context.Context, id uint) (*ProductDTO, error)

	CreateCustomIngredient(ctx context.Context, cmd CustomIngredientCommand) (*CustomIngredientDTO, error)
	UpdateCustomIngredient(ctx context.Context, id uuid.UUID, cmd CustomIngredientCommand) (*CustomIngredientDTO, error)
	DeleteCustomIngredient(ctx context.Context, id uuid.UUID) error
	GetCustomIngredient(ctx context.Context, id uuid.UUID) (*CustomIngredientDTO, error)

	// ResolveByBarcode returns nil without error when neither the local
	// store nor the external catalog knows the barcode.
	ResolveByBarcode(ctx context.Context, barcode string) (*ProductDTO, error)
	SyncProducts(ctx context.Context) (*SyncReport, error)
	// StreamSearch emits events until a close event, then closes the
	// channel. Cancelling ctx stops the stream early.
	StreamSearch(ctx context.Context, query string) <-chan StreamEvent
}

type ProductCommand struct {
	Name     string
	Brand    string
	Barcode  string
	Macros   catalog.Macros
	ImageURL string
}

type CustomIngredientCommand struct {
	Name   string
	Macros catalog.Macros
}

type ProductDTO struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	Brand     string         `json:"brand,omitempty"`
	Barcode   string         `json:"barcode,omitempty"`
	Macros    catalog.Macros `json:"macros"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Source    catalog.Source `json:"source"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type CustomIngredientDTO struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Macros    catalog.Macros `json:"macros"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SyncReport summarizes a bulk reconciliation run.
type SyncReport struct {
	UpdatedNames []string      `json:"updatedIngredients"`
	Failures     []SyncFailure `json:"failedIngredients"`
}

type SyncFailure struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// StreamEventType names a server-sent event.
type StreamEventType string

const (
	EventMessage     StreamEventType = "message"
	EventStreamError StreamEventType = "stream_error"
	EventClose       StreamEventType = "close"
)

// ItemSource says whether a streamed item is stored locally.
type ItemSource string

const (
	SourceLocal    ItemSource = "local"
	SourceExternal ItemSource = "external"
)

// StreamItem is one search result in a message batch.
type StreamItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand,omitempty"`
	Source   ItemSource      `json:"source"`
	Kind     catalog.RefKind `json:"kind,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Macros   catalog.Macros  `json:"macros"`
}

type StreamError struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// StreamEvent is one emission of the streaming search.
type StreamEvent struct {
	Type  StreamEventType
	Items []StreamItem
	Error *StreamError
}
