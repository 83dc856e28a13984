package window

import (
	"math"
	"time"

	"github.com/example/crewfinder/pkg/core/model"
)

// Overlaps reports whether two windows share any time. The comparison is
// half-open: windows that merely touch at a single instant do not overlap
func Overlaps(w1, w2 model.Window) bool {
	return w1.Start.Before(w2.End) && w1.End.After(w2.Start)
}

// Days returns the inclusive day count of a window: the ceiling of the
// span in days plus one, so a window from one midnight to the next counts
// two days
func Days(w model.Window) int {
	if !w.End.After(w.Start) && !w.End.Equal(w.Start) {
		return 0
	}
	span := w.End.Sub(w.Start)
	return int(math.Ceil(span.Hours()/24)) + 1
}

// Utilization returns the fraction of full's day count consumed by sub,
// used to report how much of a resource's offered window a preferred
// sub-window takes up. The result is clamped to [0, 1]; inputs where sub
// lies outside full produce a clamped value rather than an error
func Utilization(full, sub model.Window) float64 {
	fullDays := Days(full)
	if fullDays == 0 {
		return 0
	}
	ratio := float64(Days(sub)) / float64(fullDays)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

// Date builds a UTC midnight time, the canonical representation for
// window bounds throughout the module
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
