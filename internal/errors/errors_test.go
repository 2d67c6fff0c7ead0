package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("session expired")
	err := New(base).
		Component("session").
		Category(CategoryAuth).
		Context("session_path", "memory").
		Build()

	assert.Equal(t, "session expired", err.Error())
	assert.Equal(t, "session", err.Component)
	assert.Equal(t, CategoryAuth, err.Category)
	assert.Equal(t, "memory", err.Context["session_path"])
	assert.Equal(t, base, Unwrap(err))
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Build()
	assert.Equal(t, ComponentUnknown, err.Component)
	assert.Equal(t, CategoryGeneric, err.Category)
}

func TestIsMatchesCategory(t *testing.T) {
	t.Parallel()

	a := Newf("first").Category(CategoryLimit).Build()
	b := Newf("second").Category(CategoryLimit).Build()
	c := Newf("third").Category(CategoryNetwork).Build()

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestAsUnwrapsEnhancedError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("outer: %w", Newf("inner").Category(CategoryImport).Build())

	var ee *EnhancedError
	require.True(t, As(wrapped, &ee))
	assert.Equal(t, CategoryImport, ee.Category)
}
