package hashutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUID32IsDeterministic(t *testing.T) {
	a := UID32("user-123")
	b := UID32("user-123")
	assert.Equal(t, a, b)
}

func TestUID32DiffersAcrossInputs(t *testing.T) {
	assert.NotEqual(t, UID32("user-123"), UID32("user-456"))
}

func TestUID32NeverSetsSignBit(t *testing.T) {
	for _, id := range []string{"a", "b", "reader-1", "client-42", ""} {
		uid := UID32(id)
		assert.Zero(t, uid&(1<<31), "uid for %q should fit in a positive int32", id)
	}
}
