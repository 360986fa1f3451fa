package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RefKind says which table an ingredient reference points at.
type RefKind string

const (
	RefProduct RefKind = "product"
	RefCustom  RefKind = "custom"
)

// Ref identifies either a product or a custom ingredient. Exactly one kind
// is set; storage keeps two nullable columns and the mapper converts.
type Ref struct {
	Kind RefKind
	ID   string
}

func ProductRef(id uint) Ref {
	return Ref{Kind: RefProduct, ID: strconv.FormatUint(uint64(id), 10)}
}

func CustomRef(id uuid.UUID) Ref {
	return Ref{Kind: RefCustom, ID: id.String()}
}

// ParseRef reads the wire form of a reference. Explicit "product:<id>" and
// "custom:<id>" prefixes win. An untagged value made only of digits is taken
// as a product id, anything else as a custom ingredient id.
func ParseRef(raw string) (Ref, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Ref{}, ErrInvalidRef
	}

	if kind, id, ok := strings.Cut(raw, ":"); ok {
		switch RefKind(kind) {
		case RefProduct, RefCustom:
			if id == "" {
				return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, raw)
			}
			return Ref{Kind: RefKind(kind), ID: id}, nil
		default:
			return Ref{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRef, kind)
		}
	}

	if isDigits(raw) {
		return Ref{Kind: RefProduct, ID: raw}, nil
	}
	return Ref{Kind: RefCustom, ID: raw}, nil
}

// ProductID returns the numeric id of a product reference.
func (r Ref) ProductID() (uint, bool) {
	if r.Kind != RefProduct {
		return 0, false
	}
	n, err := strconv.ParseUint(r.ID, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

// CustomID returns the uuid of a custom ingredient reference.
func (r Ref) CustomID() (uuid.UUID, bool) {
	if r.Kind != RefCustom {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Canonical rewrites the id in its storage form, so "product:007" and
// ProductRef(7) compare equal. A reference whose id cannot be stored fails
// with ErrInvalidRef.
func (r Ref) Canonical() (Ref, error) {
	if id, ok := r.ProductID(); ok {
		return ProductRef(id), nil
	}
	if id, ok := r.CustomID(); ok {
		return CustomRef(id), nil
	}
	return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, r.String())
}

func (r Ref) String() string {
	return string(r.Kind) + ":" + r.ID
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
