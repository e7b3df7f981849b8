package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.2))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.4, Clamp01(0.4))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestStdAndMean(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 5.0, Mean(xs), 1e-12)
	assert.InDelta(t, 2.0, Std(xs), 1e-12)
	assert.Equal(t, 0.0, Std(nil))
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 1000.0, Slope([]float64{10000, 11000, 12000, 13000}), 1e-9)
	assert.InDelta(t, 0.0, Slope([]float64{5, 5, 5}), 1e-12)
	assert.Equal(t, 0.0, Slope([]float64{42}))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 600.0, RoundScore(600.5))
	assert.Equal(t, 602.0, RoundScore(601.5))
	assert.Equal(t, 0.12, Round(0.1249, 2))
}

func TestGrouped(t *testing.T) {
	assert.Equal(t, "1,234,567", Grouped(1234567))
	assert.Equal(t, "999", Grouped(999.4))
	assert.Equal(t, "-12,000", Grouped(-12000))
	assert.Equal(t, "0", Grouped(0))
}
