package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestNewFunc_Stub(t *testing.T) {
	orig := NewFunc
	t.Cleanup(func() { NewFunc = orig })

	NewFunc = func() string { return "fixed" }
	assert.Equal(t, "fixed", New())
}
