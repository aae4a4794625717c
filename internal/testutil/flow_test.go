package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedRunIDGenerator_Repeats(t *testing.T) {
	gen := NewFixedRunIDGenerator("run-42")

	for range 5 {
		assert.Equal(t, "run-42", gen.Generate())
	}
}

func TestFixedRunIDGenerator_Default(t *testing.T) {
	assert.Equal(t, "test-run", NewFixedRunIDGenerator("").Generate())
}
