package prescription

import "sort"

// Schedule is a named dosing pattern
type Schedule struct {
	Code      string   `json:"code"`
	Label     string   `json:"label,omitempty"`
	TimeSlots []string `json:"time_slots"`
	Shorthand string   `json:"shorthand,omitempty"`
}

// SlotsPerDay returns the number of daily administrations
func (s Schedule) SlotsPerDay() int { return len(s.TimeSlots) }

// AsNeeded reports whether the schedule has no fixed administration times
func (s Schedule) AsNeeded() bool { return len(s.TimeSlots) == 0 }

// ScheduleCatalog resolves schedule codes. Codes are matched exactly after
// trimming surrounding whitespace.
type ScheduleCatalog struct {
	schedules map[string]Schedule
}

// NewScheduleCatalog builds a catalog from the given templates
func NewScheduleCatalog(schedules []Schedule) *ScheduleCatalog {
	c := &ScheduleCatalog{schedules: make(map[string]Schedule, len(schedules))}
	for _, s := range schedules {
		code := normalizeText(s.Code)
		if code == "" {
			continue
		}
		s.Code = code
		s.TimeSlots = append([]string(nil), s.TimeSlots...)
		c.schedules[code] = s
	}
	return c
}

// Lookup resolves a schedule by code
func (c *ScheduleCatalog) Lookup(code string) (Schedule, bool) {
	if c == nil {
		return Schedule{}, false
	}
	s, ok := c.schedules[normalizeText(code)]
	return s, ok
}

// Len returns the number of templates
func (c *ScheduleCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.schedules)
}

// Schedules returns all templates sorted by code
func (c *ScheduleCatalog) Schedules() []Schedule {
	if c == nil {
		return nil
	}
	out := make([]Schedule, 0, len(c.schedules))
	for _, s := range c.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
