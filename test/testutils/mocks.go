// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/alchemorsel/pantry/internal/domain/recipe"
	"github.com/alchemorsel/pantry/internal/domain/shared"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
)

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) Create(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) Update(ctx context.Context, r *recipe.Recipe) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeRepository) FindByID(ctx context.Context, id uuid.UUID) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*recipe.Recipe)
	return r, args.Error(1)
}

func (m *MockRecipeRepository) FindBySlug(ctx context.Context, slug string) (*recipe.Recipe, error) {
	args := m.Called(ctx, slug)
	r, _ := args.Get(0).(*recipe.Recipe)
	return r, args.Error(1)
}

func (m *MockRecipeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*recipe.Recipe, error) {
	args := m.Called(ctx, ids)
	r, _ := args.Get(0).([]*recipe.Recipe)
	return r, args.Error(1)
}

func (m *MockRecipeRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecipeRepository) SearchRecipeIDs(ctx context.Context, filter recipe.SearchFilter) ([]outbound.SearchHit, error) {
	args := m.Called(ctx, filter)
	hits, _ := args.Get(0).([]outbound.SearchHit)
	return hits, args.Error(1)
}

// MockCatalogSource provides a mock implementation of the external catalog
type MockCatalogSource struct {
	mock.Mock
}

func (m *MockCatalogSource) FetchProduct(ctx context.Context, barcode string) (*outbound.ExternalProduct, error) {
	args := m.Called(ctx, barcode)
	p, _ := args.Get(0).(*outbound.ExternalProduct)
	return p, args.Error(1)
}

func (m *MockCatalogSource) SearchProducts(ctx context.Context, q outbound.ExternalQuery) ([]outbound.ExternalProduct, error) {
	args := m.Called(ctx, q)
	products, _ := args.Get(0).([]outbound.ExternalProduct)
	return products, args.Error(1)
}

// MockCacheRepository provides a mock implementation of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// RecordingDispatcher collects dispatched events in memory.
type RecordingDispatcher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (d *RecordingDispatcher) Dispatch(event shared.DomainEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *RecordingDispatcher) Register(string, shared.EventHandler) {}

// Names returns the names of the dispatched events in order.
func (d *RecordingDispatcher) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.events))
	for i, e := range d.events {
		names[i] = e.EventName()
	}
	return names
}

// MockRecipeService provides a mock implementation of inbound.RecipeService
type MockRecipeService struct {
	mock.Mock
}

func (m *MockRecipeService) CreateRecipe(ctx context.Context, cmd inbound.RecipeCommand) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.RecipeDTO)
	return dto, args.Error(1)
}

func (m *MockRecipeService) UpdateRecipe(ctx context.Context, id uuid.UUID, cmd inbound.RecipeCommand) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, id, cmd)
	dto, _ := args.Get(0).(*inbound.RecipeDTO)
	return dto, args.Error(1)
}

func (m *MockRecipeService) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeService) GetRecipe(ctx context.Context, slug string) (*inbound.RecipeDTO, error) {
	args := m.Called(ctx, slug)
	dto, _ := args.Get(0).(*inbound.RecipeDTO)
	return dto, args.Error(1)
}

func (m *MockRecipeService) SearchRecipes(ctx context.Context, filter recipe.SearchFilter) (*inbound.SearchResult, error) {
	args := m.Called(ctx, filter)
	result, _ := args.Get(0).(*inbound.SearchResult)
	return result, args.Error(1)
}

// MockCatalogService provides a mock implementation of inbound.CatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, cmd inbound.ProductCommand) (*inbound.ProductDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.ProductDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, id uint, cmd inbound.ProductCommand) (*inbound.ProductDTO, error) {
	args := m.Called(ctx, id, cmd)
	dto, _ := args.Get(0).(*inbound.ProductDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id uint) (*inbound.ProductDTO, error) {
	args := m.Called(ctx, id)
	dto, _ := args.Get(0).(*inbound.ProductDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) CreateCustomIngredient(ctx context.Context, cmd inbound.CustomIngredientCommand) (*inbound.CustomIngredientDTO, error) {
	args := m.Called(ctx, cmd)
	dto, _ := args.Get(0).(*inbound.CustomIngredientDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) UpdateCustomIngredient(ctx context.Context, id uuid.UUID, cmd inbound.CustomIngredientCommand) (*inbound.CustomIngredientDTO, error) {
	args := m.Called(ctx, id, cmd)
	dto, _ := args.Get(0).(*inbound.CustomIngredientDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) DeleteCustomIngredient(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogService) GetCustomIngredient(ctx context.Context, id uuid.UUID) (*inbound.CustomIngredientDTO, error) {
	args := m.Called(ctx, id)
	dto, _ := args.Get(0).(*inbound.CustomIngredientDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) ResolveByBarcode(ctx context.Context, barcode string) (*inbound.ProductDTO, error) {
	args := m.Called(ctx, barcode)
	dto, _ := args.Get(0).(*inbound.ProductDTO)
	return dto, args.Error(1)
}

func (m *MockCatalogService) SyncProducts(ctx context.Context) (*inbound.SyncReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*inbound.SyncReport)
	return report, args.Error(1)
}

// StreamSearch replays the events given to Return on a closed channel.
func (m *MockCatalogService) StreamSearch(ctx context.Context, query string) <-chan inbound.StreamEvent {
	args := m.Called(ctx, query)
	events, _ := args.Get(0).([]inbound.StreamEvent)
	ch := make(chan inbound.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

var (
	_ outbound.RecipeRepository = (*MockRecipeRepository)(nil)
	_ outbound.CatalogSource    = (*MockCatalogSource)(nil)
	_ outbound.CacheRepository  = (*MockCacheRepository)(nil)
	_ shared.EventDispatcher    = (*RecordingDispatcher)(nil)
	_ inbound.RecipeService     = (*MockRecipeService)(nil)
	_ inbound.CatalogService    = (*MockCatalogService)(nil)
)
