package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCapital_FloorsAllocatable(t *testing.T) {
	c := NewCapital(10_000_000, 0.5)
	assert.Equal(t, int64(5_000_000), c.TotalAllocatable)

	// floor(999 × 0.5) = 499
	assert.Equal(t, int64(499), NewCapital(999, 0.5).TotalAllocatable)
}

func TestNewCapital_ZeroOrNegative(t *testing.T) {
	assert.Equal(t, int64(0), NewCapital(0, 0.5).TotalAllocatable)
	assert.Equal(t, int64(0), NewCapital(-10, 0.5).TotalAllocatable)
	assert.Equal(t, int64(0), NewCapital(1000, 0).TotalAllocatable)
}

func TestAllocate_Adequate(t *testing.T) {
	c := NewCapital(10_000_000, 0.5)
	a := c.Allocate(Template{ChannelSizeSats: 800_000, CapitalShare: 0.2})
	assert.Equal(t, int64(1_000_000), a.Ceiling)
	assert.True(t, a.Adequate)
}

func TestAllocate_Insufficient(t *testing.T) {
	c := NewCapital(10_000_000, 0.5)
	a := c.Allocate(Template{ChannelSizeSats: 2_000_000, CapitalShare: 0.2})
	assert.Equal(t, int64(1_000_000), a.Ceiling)
	assert.False(t, a.Adequate)
}

func TestAllocate_ZeroSizeNeverAdequate(t *testing.T) {
	c := NewCapital(10_000_000, 0.5)
	assert.False(t, c.Allocate(Template{ChannelSizeSats: 0, CapitalShare: 1}).Adequate)
}

func TestAllocate_ShareFloatingPoint(t *testing.T) {
	// 0.3 no es representable en binario; el floor debe dar 300_000
	c := NewCapital(1_000_000, 1)
	a := c.Allocate(Template{ChannelSizeSats: 1, CapitalShare: 0.3})
	assert.Equal(t, int64(300_000), a.Ceiling)
}
