// internal/services/inventory_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestRemainingUnlimited(t *testing.T) {
	assert.Nil(t, Remaining(nil, 0))
	assert.Nil(t, Remaining(nil, 5000))
}

func TestRemainingCountsDown(t *testing.T) {
	remaining := Remaining(intPtr(10), 3)
	assert.NotNil(t, remaining)
	assert.Equal(t, 7, *remaining)
}

func TestRemainingClampsAtZero(t *testing.T) {
	// Oversold capacity reports zero, never a negative number.
	remaining := Remaining(intPtr(5), 9)
	assert.NotNil(t, remaining)
	assert.Equal(t, 0, *remaining)
}

func TestHasStock(t *testing.T) {
	assert.True(t, HasStock(nil, 1000000, 1000000))
	assert.True(t, HasStock(intPtr(10), 3, 7))
	assert.False(t, HasStock(intPtr(10), 3, 8))
	assert.False(t, HasStock(intPtr(0), 0, 1))
	assert.True(t, HasStock(intPtr(0), 0, 0))
}
