package discount

import (
	"time"

	"github.com/go-faster/errors"
)

// Weekdays is a set of UTC weekdays (0=Sunday..6=Saturday) stored as a
// bitmask. The empty set means "every day".
type Weekdays uint8

// EveryDay is the empty weekday set; it places no restriction.
const EveryDay Weekdays = 0

// WeekdaysOf builds a Weekdays set from day numbers in [0,6]. Duplicates are
// normalized away; out-of-range values are rejected.
func WeekdaysOf(days []int) (Weekdays, error) {
	var w Weekdays
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, errors.Errorf("day of week %d out of range [0,6]", d)
		}
		w |= 1 << uint(d)
	}
	return w, nil
}

// Contains reports whether the set permits the given weekday. The empty set
// permits every day.
func (w Weekdays) Contains(day time.Weekday) bool {
	if w == EveryDay {
		return true
	}
	return w&(1<<uint(day)) != 0
}

// Days returns the set as sorted day numbers. Empty for EveryDay.
func (w Weekdays) Days() []int {
	if w == EveryDay {
		return nil
	}
	days := make([]int, 0, 7)
	for d := 0; d < 7; d++ {
		if w&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}
