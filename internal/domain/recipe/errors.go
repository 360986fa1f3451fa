package recipe

import "errors"

var (
	ErrEmptyTitle      = errors.New("recipe title cannot be empty")
	ErrTitleTooLong    = errors.New("recipe title must not exceed 200 characters")
	ErrTooManySteps    = errors.New("recipe must not exceed 100 steps")
	ErrEmptySlug       = errors.New("recipe slug cannot be empty")
	ErrInvalidQuantity = errors.New("ingredient quantity must be greater than 0")

	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrSlugTaken is returned by storage when the slug unique index rejects a write.
	ErrSlugTaken = errors.New("recipe slug already taken")

	ErrInvalidSortKey = errors.New("unknown sort key")
	ErrInvalidRange   = errors.New("range minimum exceeds maximum")
	ErrInvalidLimit   = errors.New("limit must be between 0 and 200")
	ErrInvalidOffset  = errors.New("offset must not be negative")
)
