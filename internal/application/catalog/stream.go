package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alchemorsel/pantry/internal/domain/catalog"
	"github.com/alchemorsel/pantry/internal/ports/inbound"
	"github.com/alchemorsel/pantry/internal/ports/outbound"
	"github.com/alchemorsel/pantry/pkg/textkey"
)

// Names used as the source of stream_error events.
const (
	streamSourceLocal   = "local"
	streamSourceSearch  = "openfoodfacts:search"
	streamSourceBrand   = "openfoodfacts:brand"
	streamSourceBarcode = "openfoodfacts:barcode"
)

// StreamSearch searches local ingredients and the external catalog for
// query. Local matches arrive first as a single batch; every external
// variant then arrives as its own batch in completion order. Items already
// emitted are never repeated. The last event is always close unless ctx
// ended first; the channel is closed in both cases.
func (s *CatalogService) StreamSearch(ctx context.Context, query string) <-chan inbound.StreamEvent {
	out := make(chan inbound.StreamEvent)
	go s.stream(ctx, strings.TrimSpace(query), out)
	return out
}

func (s *CatalogService) stream(ctx context.Context, query string, out chan<- inbound.StreamEvent) {
	defer close(out)

	ctx, span := s.tracer.Start(ctx, "catalog.stream_search")
	defer span.End()

	if query == "" {
		emit(ctx, out, inbound.StreamEvent{Type: inbound.EventClose})
		return
	}

	seen := newSeenSet()
	local, err := s.localMatches(ctx, query, seen)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Local ingredient search failed", zap.String("query", query), zap.Error(err))
		if !emit(ctx, out, streamError(streamSourceLocal, err)) {
			return
		}
	} else if !emit(ctx, out, inbound.StreamEvent{Type: inbound.EventMessage, Items: local}) {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	run := func(source string, lookup func(context.Context) ([]outbound.ExternalProduct, error)) {
		g.Go(func() error {
			products, err := lookup(gctx)
			if gctx.Err() != nil {
				return nil
			}
			if err != nil {
				s.logger.Warn("External lookup failed",
					zap.String("source", source),
					zap.String("query", query),
					zap.Error(err),
				)
				seen.emit(gctx, out, streamError(source, err))
				return nil
			}
			seen.emitFresh(gctx, out, products)
			return nil
		})
	}

	run(streamSourceSearch, func(ctx context.Context) ([]outbound.ExternalProduct, error) {
		return s.source.SearchProducts(ctx, outbound.ExternalQuery{Terms: query, PageSize: s.opts.SearchPageSize})
	})
	run(streamSourceBrand, func(ctx context.Context) ([]outbound.ExternalProduct, error) {
		return s.source.SearchProducts(ctx, outbound.ExternalQuery{Brand: query, PageSize: s.opts.SearchPageSize})
	})
	if catalog.LooksLikeBarcode(query) {
		run(streamSourceBarcode, func(ctx context.Context) ([]outbound.ExternalProduct, error) {
			p, err := s.source.FetchProduct(ctx, query)
			if errors.Is(err, outbound.ErrNotInCatalog) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return []outbound.ExternalProduct{*p}, nil
		})
	}

	// Lookups report their own failures, so Wait only returns when all settle.
	_ = g.Wait()

	emit(ctx, out, inbound.StreamEvent{Type: inbound.EventClose})
}

// localMatches returns custom ingredients then products whose normalized
// name contains the query, and marks them as seen.
func (s *CatalogService) localMatches(ctx context.Context, query string, seen *seenSet) ([]inbound.StreamItem, error) {
	normalized := textkey.Normalize(query)

	customs, err := s.customs.SearchByName(ctx, normalized, s.opts.LocalSearchLimit)
	if err != nil {
		return nil, err
	}
	products, err := s.products.SearchByName(ctx, normalized, s.opts.LocalSearchLimit)
	if err != nil {
		return nil, err
	}

	items := make([]inbound.StreamItem, 0, len(customs)+len(products))
	for _, c := range customs {
		items = append(items, inbound.StreamItem{
			ID:     c.Ref().String(),
			Name:   c.Name(),
			Source: inbound.SourceLocal,
			Kind:   catalog.RefCustom,
			Macros: c.Macros(),
		})
	}
	for _, p := range products {
		items = append(items, inbound.StreamItem{
			ID:       p.Ref().String(),
			Name:     p.Name(),
			Brand:    p.Brand(),
			Source:   inbound.SourceLocal,
			Kind:     catalog.RefProduct,
			ImageURL: p.ImageURL(),
			Macros:   p.Macros(),
		})
		if code := p.Barcode(); code != "" {
			seen.codes[code] = struct{}{}
		}
	}
	return items, nil
}

// seenSet tracks the barcodes already sent to the client. Filtering and
// sending happen under one lock so concurrent variants cannot both emit the
// same product.
type seenSet struct {
	mu    sync.Mutex
	codes map[string]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{codes: make(map[string]struct{})}
}

func (s *seenSet) emit(ctx context.Context, out chan<- inbound.StreamEvent, ev inbound.StreamEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return emit(ctx, out, ev)
}

// emitFresh sends the products not seen before as one batch. Products
// without a code or a name are dropped. An all-duplicate batch sends nothing.
func (s *seenSet) emitFresh(ctx context.Context, out chan<- inbound.StreamEvent, products []outbound.ExternalProduct) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]inbound.StreamItem, 0, len(products))
	for _, p := range products {
		code := strings.TrimSpace(p.Code)
		name := strings.TrimSpace(p.Details.Name)
		if code == "" || name == "" {
			continue
		}
		if _, dup := s.codes[code]; dup {
			continue
		}
		s.codes[code] = struct{}{}
		items = append(items, inbound.StreamItem{
			ID:       code,
			Name:     name,
			Brand:    p.Details.Brand,
			Source:   inbound.SourceExternal,
			ImageURL: p.Details.ImageURL,
			Macros:   p.Details.Macros.Rounded(),
		})
	}
	if len(items) == 0 {
		return true
	}
	return emit(ctx, out, inbound.StreamEvent{Type: inbound.EventMessage, Items: items})
}

// emit sends ev unless ctx ends first.
func emit(ctx context.Context, out chan<- inbound.StreamEvent, ev inbound.StreamEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func streamError(source string, err error) inbound.StreamEvent {
	return inbound.StreamEvent{
		Type:  inbound.EventStreamError,
		Error: &inbound.StreamError{Source: source, Message: err.Error()},
	}
}
