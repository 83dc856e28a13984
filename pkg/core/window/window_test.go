package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/crewfinder/pkg/core/model"
)

func win(y1 int, m1 time.Month, d1, y2 int, m2 time.Month, d2 int) model.Window {
	return model.Window{Start: Date(y1, m1, d1), End: Date(y2, m2, d2)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		w1, w2   model.Window
		expected bool
	}{
		{
			name:     "partial overlap",
			w1:       win(2024, 1, 1, 2024, 1, 30),
			w2:       win(2024, 1, 10, 2024, 1, 15),
			expected: true,
		},
		{
			name:     "contained window",
			w1:       win(2024, 1, 1, 2024, 12, 31),
			w2:       win(2024, 6, 1, 2024, 6, 15),
			expected: true,
		},
		{
			name:     "disjoint windows",
			w1:       win(2024, 1, 1, 2024, 1, 30),
			w2:       win(2024, 2, 1, 2024, 2, 10),
			expected: false,
		},
		{
			name:     "touching at a single instant does not overlap",
			w1:       win(2024, 1, 1, 2024, 1, 15),
			w2:       win(2024, 1, 15, 2024, 1, 30),
			expected: false,
		},
		{
			name:     "identical windows",
			w1:       win(2024, 3, 1, 2024, 3, 10),
			w2:       win(2024, 3, 1, 2024, 3, 10),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Overlaps(tt.w1, tt.w2))
			// Overlap is symmetric
			assert.Equal(t, tt.expected, Overlaps(tt.w2, tt.w1))
		})
	}
}

func TestDays(t *testing.T) {
	tests := []struct {
		name     string
		w        model.Window
		expected int
	}{
		{name: "single day", w: win(2024, 1, 1, 2024, 1, 1), expected: 1},
		{name: "two days", w: win(2024, 1, 1, 2024, 1, 2), expected: 2},
		{name: "full january", w: win(2024, 1, 1, 2024, 1, 30), expected: 30},
		{name: "inverted window counts zero", w: win(2024, 1, 10, 2024, 1, 1), expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Days(tt.w))
		})
	}
}

func TestUtilization(t *testing.T) {
	full := win(2024, 1, 1, 2024, 1, 30)

	t.Run("identical windows utilize fully", func(t *testing.T) {
		assert.Equal(t, 1.0, Utilization(full, full))
	})

	t.Run("contained sub-window", func(t *testing.T) {
		sub := win(2024, 1, 10, 2024, 1, 15)
		got := Utilization(full, sub)
		assert.InDelta(t, 6.0/30.0, got, 1e-9)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	})

	t.Run("sub longer than full is clamped", func(t *testing.T) {
		sub := win(2023, 12, 1, 2024, 3, 1)
		assert.Equal(t, 1.0, Utilization(full, sub))
	})

	t.Run("empty full window", func(t *testing.T) {
		empty := win(2024, 1, 10, 2024, 1, 1)
		assert.Equal(t, 0.0, Utilization(empty, full))
	})
}
