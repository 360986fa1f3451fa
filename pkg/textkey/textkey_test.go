package textkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Crème Brûlée", "creme brulee"},
		{"JALAPEÑO", "jalapeno"},
		{"", ""},
		{"already plain", "already plain"},
		{"Łódź", "łodz"},
	}

	for _, tc := range cases {
		got := Normalize(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, got, Normalize(got), "idempotent for %q", tc.in)
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Existing Recipe", "existing-recipe"},
		{"  Crème brûlée!! (v2) ", "creme-brulee-v2"},
		{"Fish & Chips", "fish-chips"},
		{"!!!", DefaultSlug},
		{"", DefaultSlug},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), tc.in)
	}
}
