// Package timeslot parses booking time slots and resolves them against the
// restaurant's slot catalogue.
//
// A slot is stored by its canonical label "HH:MM-HH:MM".  Clients may send
// either the label or just its start time; both resolve to the same label, so
// two requests for the same sitting always collide on the same ledger key.
package timeslot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Service window for slot starts, in minutes after midnight.  21:00 is the
// last accepted start.
const (
	OpenMinute      = 10 * 60
	LastStartMinute = 21 * 60
)

var (
	ErrFormat       = errors.New("invalid time slot format")
	ErrOutsideHours = errors.New("booking time must be between 10:00 and 21:00")
	ErrUnknownSlot  = errors.New("time slot is not offered")
)

// Slot is one catalogue entry.
type Slot struct {
	Label string
	Start int // minutes after midnight
	End   int
}

// Catalog is the immutable set of bookable slots.  Safe for concurrent use.
type Catalog struct {
	slots   []Slot
	byStart map[int]Slot
}

// NewCatalog validates labels and builds a catalogue ordered by start time.
func NewCatalog(labels []string) (*Catalog, error) {
	c := &Catalog{byStart: make(map[int]Slot, len(labels))}
	for _, raw := range labels {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		start, end, ok := splitRange(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrFormat, raw)
		}
		if end <= start {
			return nil, fmt.Errorf("slot %q ends before it starts", raw)
		}
		if !InWindow(start) {
			return nil, fmt.Errorf("slot %q: %w", raw, ErrOutsideHours)
		}
		if _, dup := c.byStart[start]; dup {
			return nil, fmt.Errorf("slot %q duplicates start time %s", raw, formatMinute(start))
		}
		s := Slot{Label: formatMinute(start) + "-" + formatMinute(end), Start: start, End: end}
		c.byStart[start] = s
		c.slots = append(c.slots, s)
	}
	if len(c.slots) == 0 {
		return nil, errors.New("slot catalogue is empty")
	}
	sort.Slice(c.slots, func(i, j int) bool { return c.slots[i].Start < c.slots[j].Start })
	return c, nil
}

// MustCatalog is NewCatalog for fixed, known-good input.
func MustCatalog(labels ...string) *Catalog {
	c, err := NewCatalog(labels)
	if err != nil {
		panic(err)
	}
	return c
}

// Labels lists canonical labels in start order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.slots))
	for i, s := range c.slots {
		out[i] = s.Label
	}
	return out
}

// Resolve validates input and returns the catalogue slot it names.  Checks run
// in order: format, service window, catalogue membership.
func (c *Catalog) Resolve(input string) (Slot, error) {
	input = strings.TrimSpace(input)
	var start, end int
	if strings.Contains(input, "-") {
		var ok bool
		if start, end, ok = splitRange(input); !ok {
			return Slot{}, ErrFormat
		}
	} else {
		m, ok := ParseClock(input)
		if !ok {
			return Slot{}, ErrFormat
		}
		start, end = m, -1
	}
	if !InWindow(start) {
		return Slot{}, ErrOutsideHours
	}
	s, ok := c.byStart[start]
	if !ok || (end >= 0 && end != s.End) {
		return Slot{}, ErrUnknownSlot
	}
	return s, nil
}

// InWindow reports whether a start time lies within 10:00..21:00 inclusive.
func InWindow(minute int) bool {
	return minute >= OpenMinute && minute <= LastStartMinute
}

// ParseClock parses "H:MM" or "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found || len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func splitRange(s string) (start, end int, ok bool) {
	a, b, found := strings.Cut(s, "-")
	if !found {
		return 0, 0, false
	}
	if start, ok = ParseClock(a); !ok {
		return 0, 0, false
	}
	if end, ok = ParseClock(b); !ok {
		return 0, 0, false
	}
	return start, end, true
}

func formatMinute(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
