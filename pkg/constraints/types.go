package constraints

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// AccessLevel ranks requesters. Higher levels may use everything lower levels can.
type AccessLevel int

const (
	LevelNone AccessLevel = iota // unset
	LevelPublic
	LevelStudent
	LevelStaff
	LevelAdmin
)

var levelNames = map[AccessLevel]string{
	LevelNone:    "",
	LevelPublic:  "public",
	LevelStudent: "student",
	LevelStaff:   "staff",
	LevelAdmin:   "admin",
}

func (l AccessLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

// ParseAccessLevel parses a level name. The empty string is LevelNone.
func ParseAccessLevel(s string) (AccessLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return LevelNone, fmt.Errorf("%w: unknown access level %q", ErrInvalidConstraint, s)
}

// MarshalText encodes the level by name.
func (l AccessLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name.
func (l *AccessLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAccessLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Effective treats an unset level as public.
func (l AccessLevel) Effective() AccessLevel {
	if l == LevelNone {
		return LevelPublic
	}
	return l
}

// RequesterContext describes who is asking for a route.
type RequesterContext struct {
	UserID      string      `json:"user_id,omitempty"`
	AccessLevel AccessLevel `json:"access_level,omitempty"`
	// StepFree excludes stairs.
	StepFree bool `json:"step_free,omitempty"`
}

// Kind is the rule a constraint applies
type Kind string

const (
	// KindClosure forbids traversal, permanently or within the validity period.
	KindClosure Kind = "closure"
	// KindBlockedHours forbids traversal inside a daily window.
	KindBlockedHours Kind = "blocked_hours"
	// KindOpenHours forbids traversal outside a daily window.
	KindOpenHours Kind = "open_hours"
	// KindAccessLevel forbids traversal below a minimum access level.
	KindAccessLevel Kind = "access_level"
	// KindObstacle is a temporary closure; it requires a validity period.
	KindObstacle Kind = "obstacle"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindClosure, KindBlockedHours, KindOpenHours, KindAccessLevel, KindObstacle:
		return true
	}
	return false
}

// ClockTime is a time of day in minutes after midnight.
type ClockTime int

// ParseClockTime parses "HH:MM". "24:00" is accepted as the end of the day.
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: clock time %q must be HH:MM", ErrInvalidConstraint, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: clock time %q: %v", ErrInvalidConstraint, s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: clock time %q: %v", ErrInvalidConstraint, s, err)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: clock time %q out of range", ErrInvalidConstraint, s)
	}
	return ClockTime(h*60 + m), nil
}

// Clock returns the ClockTime of t in its own location.
func Clock(t time.Time) ClockTime {
	return ClockTime(t.Hour()*60 + t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// MarshalText encodes the time as HH:MM.
func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes HH:MM.
func (c *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Day is a weekday that encodes by its three-letter name and decodes from
// the short or the full English name.
type Day time.Weekday

var dayNames = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func (d Day) String() string {
	if d < 0 || int(d) >= len(dayNames) {
		return "unknown"
	}
	return dayNames[d]
}

// MarshalText encodes the day as "mon", "tue", ...
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts short or full English day names.
func (d *Day) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, short := range dayNames {
		if s == short || s == strings.ToLower(time.Weekday(i).String()) {
			*d = Day(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown day %q", ErrInvalidConstraint, text)
}

// TimeWindow is a daily clock window [Start, End). When End is before Start
// the window wraps midnight, and Days refers to the day the window starts.
// Start equal to End covers the whole day. Empty Days means every day.
type TimeWindow struct {
	Start ClockTime `json:"start" yaml:"start"`
	End   ClockTime `json:"end" yaml:"end"`
	Days  []Day     `json:"days,omitempty" yaml:"days,omitempty"`
}

// Contains reports whether t falls inside the window. t must already be in
// the campus location.
func (w TimeWindow) Contains(t time.Time) bool {
	clock := Clock(t)
	switch {
	case w.Start == w.End:
		return w.onDay(t.Weekday())
	case w.Start < w.End:
		return clock >= w.Start && clock < w.End && w.onDay(t.Weekday())
	case clock >= w.Start:
		return w.onDay(t.Weekday())
	case clock < w.End:
		return w.onDay(t.AddDate(0, 0, -1).Weekday())
	default:
		return false
	}
}

func (w TimeWindow) onDay(d time.Weekday) bool {
	return len(w.Days) == 0 || slices.Contains(w.Days, Day(d))
}

func (w TimeWindow) String() string {
	s := w.Start.String() + "-" + w.End.String()
	if len(w.Days) > 0 {
		names := make([]string, len(w.Days))
		for i, d := range w.Days {
			names[i] = d.String()
		}
		s += " " + strings.Join(names, ",")
	}
	return s
}

// Constraint is a rule restricting traversal of an edge, or of every edge
// incident to a node. Constraints never modify the graph.
type Constraint struct {
	ID     string `json:"id" yaml:"id"`
	Kind   Kind   `json:"kind" yaml:"kind"`
	EdgeID string `json:"edge_id,omitempty" yaml:"edge_id,omitempty"`
	NodeID string `json:"node_id,omitempty" yaml:"node_id,omitempty"`

	Window     *TimeWindow `json:"window,omitempty" yaml:"window,omitempty"`
	ValidFrom  *time.Time  `json:"valid_from,omitempty" yaml:"valid_from,omitempty"`
	ValidUntil *time.Time  `json:"valid_until,omitempty" yaml:"valid_until,omitempty"`

	// MinAccessLevel is the level required by access_level constraints.
	MinAccessLevel AccessLevel `json:"min_access_level,omitempty" yaml:"min_access_level,omitempty"`
	// ExemptLevel lets requesters at or above it bypass hour-based rules.
	ExemptLevel AccessLevel `json:"exempt_level,omitempty" yaml:"exempt_level,omitempty"`

	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Target returns the keyed entity as "edge:<id>" or "node:<id>".
func (c *Constraint) Target() string {
	if c.EdgeID != "" {
		return "edge:" + c.EdgeID
	}
	return "node:" + c.NodeID
}

// Validate checks the constraint is well formed
func (c *Constraint) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: constraint %q: %s", ErrInvalidConstraint, c.ID, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.ID) == "" {
		return invalid("id is required")
	}
	if !c.Kind.Valid() {
		return invalid("unknown kind %q", c.Kind)
	}
	if (c.EdgeID == "") == (c.NodeID == "") {
		return invalid("exactly one of edge_id and node_id is required")
	}
	if c.ValidFrom != nil && c.ValidUntil != nil && !c.ValidFrom.Before(*c.ValidUntil) {
		return invalid("valid_from must be before valid_until")
	}

	switch c.Kind {
	case KindBlockedHours, KindOpenHours:
		if c.Window == nil {
			return invalid("%s requires a window", c.Kind)
		}
		if c.Window.Start < 0 || c.Window.Start > 24*60 || c.Window.End < 0 || c.Window.End > 24*60 {
			return invalid("window %s out of range", c.Window)
		}
	case KindAccessLevel:
		if c.MinAccessLevel == LevelNone {
			return invalid("access_level requires min_access_level")
		}
	case KindObstacle:
		if c.ValidFrom == nil || c.ValidUntil == nil {
			return invalid("obstacle requires valid_from and valid_until")
		}
	}
	if c.ExemptLevel != LevelNone && c.Kind != KindBlockedHours && c.Kind != KindOpenHours {
		return invalid("exempt_level only applies to hour-based kinds")
	}
	return nil
}

// inPeriod reports whether at falls within [ValidFrom, ValidUntil).
func (c *Constraint) inPeriod(at time.Time) bool {
	if c.ValidFrom != nil && at.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && !at.Before(*c.ValidUntil) {
		return false
	}
	return true
}

// Forbids reports whether the constraint forbids traversal at the given
// time for the requester. at must already be in the campus location.
func (c *Constraint) Forbids(at time.Time, rc RequesterContext) bool {
	if !c.inPeriod(at) {
		return false
	}
	level := rc.AccessLevel.Effective()

	switch c.Kind {
	case KindClosure, KindObstacle:
		return true
	case KindAccessLevel:
		return level < c.MinAccessLevel
	case KindBlockedHours:
		if c.exempt(level) {
			return false
		}
		return c.Window.Contains(at)
	case KindOpenHours:
		if c.exempt(level) {
			return false
		}
		return !c.Window.Contains(at)
	default:
		return false
	}
}

func (c *Constraint) exempt(level AccessLevel) bool {
	return c.ExemptLevel != LevelNone && level >= c.ExemptLevel
}

func (c *Constraint) clone() *Constraint {
	cp := *c
	if c.Window != nil {
		w := *c.Window
		w.Days = slices.Clone(c.Window.Days)
		cp.Window = &w
	}
	return &cp
}
