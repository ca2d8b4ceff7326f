package appointment

import (
	"fmt"
	"strings"
	"time"
)

// DayPart is a bookable window within a day, expressed as offsets from
// midnight, cut into slots of Step length. A trailing remainder shorter than
// Step is not bookable.
type DayPart struct {
	Start time.Duration
	End   time.Duration
	Step  time.Duration
}

var (
	Morning   = DayPart{Start: 9 * time.Hour, End: 12 * time.Hour, Step: 15 * time.Minute}
	Afternoon = DayPart{Start: 14 * time.Hour, End: 17 * time.Hour, Step: 15 * time.Minute}
)

// ParseWindow reads "HH:MM-HH:MM" into a DayPart using step as the slot
// length.
func ParseWindow(window string, step time.Duration) (DayPart, error) {
	if step <= 0 {
		return DayPart{}, fmt.Errorf("slot length must be positive, got %s", step)
	}
	from, to, ok := strings.Cut(strings.TrimSpace(window), "-")
	if !ok {
		return DayPart{}, fmt.Errorf("window %q: expected HH:MM-HH:MM", window)
	}
	start, err := parseClock(from)
	if err != nil {
		return DayPart{}, fmt.Errorf("window %q: %w", window, err)
	}
	end, err := parseClock(to)
	if err != nil {
		return DayPart{}, fmt.Errorf("window %q: %w", window, err)
	}
	if end <= start {
		return DayPart{}, fmt.Errorf("window %q: end must be after start", window)
	}
	return DayPart{Start: start, End: end, Step: step}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Catalog is the fixed, ordered list of slot labels a clinic offers each
// day. It is immutable after construction.
type Catalog struct {
	labels []string
	index  map[string]int
}

// NewCatalog lays the parts out in the order given.
func NewCatalog(parts ...DayPart) *Catalog {
	var labels []string
	for _, p := range parts {
		if p.Step <= 0 {
			continue
		}
		for t := p.Start; t+p.Step <= p.End; t += p.Step {
			labels = append(labels, formatClock(t)+" - "+formatClock(t+p.Step))
		}
	}
	return NewCatalogFromLabels(labels...)
}

// NewCatalogFromLabels keeps labels verbatim. Duplicates after the first
// occurrence are dropped.
func NewCatalogFromLabels(labels ...string) *Catalog {
	c := &Catalog{index: make(map[string]int, len(labels))}
	for _, l := range labels {
		if _, dup := c.index[l]; dup {
			continue
		}
		c.index[l] = len(c.labels)
		c.labels = append(c.labels, l)
	}
	return c
}

// DefaultCatalog is 9 AM to 12 PM and 2 PM to 5 PM in quarter-hour slots.
func DefaultCatalog() *Catalog {
	return NewCatalog(Morning, Afternoon)
}

func (c *Catalog) Contains(label string) bool {
	_, ok := c.index[label]
	return ok
}

// Labels returns a copy of the catalog in order.
func (c *Catalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c *Catalog) Len() int { return len(c.labels) }

func formatClock(d time.Duration) string {
	mins := int(d / time.Minute)
	h, m := (mins/60)%24, mins%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d %s", h12, m, suffix)
}
