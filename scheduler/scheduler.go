// Package scheduler decides how often cached images are refreshed and
// how long they stay valid, based on a content-volatility tier and
// whether the wall clock currently falls inside configured business
// hours. It holds no cache state; every function is a pure timing
// computation over the process-wide configuration.
package scheduler

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Tier classifies how often a piece of content is expected to change.
type Tier string

// Known content tiers, ordered from most to least volatile.
const (
	TierCritical  Tier = "critical"
	TierImportant Tier = "important"
	TierStable    Tier = "stable"
)

// BusinessHours is a local-time hour window [Start, End).
type BusinessHours struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Config is the process-wide scheduling configuration: an IANA timezone,
// a business-hours window and the weekdays it applies to. No other shape
// is valid.
type Config struct {
	Timezone      string         `yaml:"timezone"`
	BusinessHours BusinessHours  `yaml:"business_hours"`
	BusinessDays  []time.Weekday `yaml:"business_days"`
}

// DefaultConfig returns the configuration used when none is provided:
// 9-17 on weekdays, US Eastern time.
func DefaultConfig() Config {
	return Config{
		Timezone:      "America/New_York",
		BusinessHours: BusinessHours{Start: 9, End: 17},
		BusinessDays: []time.Weekday{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
		},
	}
}

// Validate checks the configuration, collecting every problem found.
func (c Config) Validate() error {
	var errs []string

	if c.Timezone == "" {
		errs = append(errs, "timezone is required")
	} else if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not a valid IANA name", c.Timezone))
	}

	if c.BusinessHours.Start < 0 || c.BusinessHours.Start > 23 {
		errs = append(errs, "business hours start must be between 0 and 23")
	}
	if c.BusinessHours.End < 0 || c.BusinessHours.End > 23 {
		errs = append(errs, "business hours end must be between 0 and 23")
	}
	if c.BusinessHours.Start == c.BusinessHours.End {
		errs = append(errs, "business hours start and end must differ")
	}

	if len(c.BusinessDays) == 0 {
		errs = append(errs, "at least one business day is required")
	}
	for _, day := range c.BusinessDays {
		if day < time.Sunday || day > time.Saturday {
			errs = append(errs, fmt.Sprintf("invalid business day %d", day))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid scheduler config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// tierIntervals holds the proactive refresh cadence for one tier, inside
// and outside business hours. New content is far more likely to be
// published or edited during business hours, so the in-hours cadence is
// tighter.
type tierIntervals struct {
	business time.Duration
	offHours time.Duration
}

// Refresh cadence per tier. Unknown tiers fall back to TierStable. The
// ordering critical <= important <= stable must hold in both columns.
var refreshIntervals = map[Tier]tierIntervals{
	TierCritical:  {business: 15 * time.Minute, offHours: 1 * time.Hour},
	TierImportant: {business: 30 * time.Minute, offHours: 2 * time.Hour},
	TierStable:    {business: 1 * time.Hour, offHours: 4 * time.Hour},
}

// expiryFactor scales the refresh interval into the cache expiry. It must
// stay above 1 so entries always outlive their refresh cadence.
const expiryFactor = 4

// Scheduler computes refresh and expiry timing from the process-wide
// configuration. Safe for concurrent use.
type Scheduler struct {
	mu  sync.RWMutex
	cfg Config
	loc *time.Location
}

// New creates a Scheduler from a validated configuration.
func New(cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{cfg: cfg, loc: loc}, nil
}

// UpdateConfig replaces the configuration wholesale. Subsequent calls use
// the new values immediately; expiries already handed out are not
// recomputed.
func (s *Scheduler) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Timezone, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.loc = loc
	return nil
}

// Config returns a copy of the current configuration.
func (s *Scheduler) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.cfg
	cfg.BusinessDays = append([]time.Weekday(nil), s.cfg.BusinessDays...)
	return cfg
}

// IsBusinessHours reports whether now, in the configured timezone, falls
// on a business day within the [start, end) window. Windows that cross
// midnight (start > end) are supported.
func (s *Scheduler) IsBusinessHours(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isBusinessHoursLocked(now)
}

func (s *Scheduler) isBusinessHoursLocked(now time.Time) bool {
	local := now.In(s.loc)

	if !s.isBusinessDayLocked(local.Weekday()) {
		return false
	}

	hour := local.Hour()
	start, end := s.cfg.BusinessHours.Start, s.cfg.BusinessHours.End
	if start < end {
		return hour >= start && hour < end
	}
	// Window crosses midnight
	return hour >= start || hour < end
}

func (s *Scheduler) isBusinessDayLocked(day time.Weekday) bool {
	for _, d := range s.cfg.BusinessDays {
		if d == day {
			return true
		}
	}
	return false
}

// GetRefreshInterval returns how often the given tier should be
// proactively refreshed right now.
func (s *Scheduler) GetRefreshInterval(tier Tier) time.Duration {
	return s.RefreshIntervalAt(tier, time.Now())
}

// RefreshIntervalAt is GetRefreshInterval evaluated at an explicit time.
func (s *Scheduler) RefreshIntervalAt(tier Tier, now time.Time) time.Duration {
	intervals := refreshIntervals[normalizeTier(tier)]

	if s.IsBusinessHours(now) {
		return intervals.business
	}
	return intervals.offHours
}

// GetCacheExpiry returns how long a cached entry of the given tier may be
// served before it is considered stale. Always strictly greater than the
// refresh interval for the same tier.
func (s *Scheduler) GetCacheExpiry(tier Tier) time.Duration {
	return s.CacheExpiryAt(tier, time.Now())
}

// CacheExpiryAt is GetCacheExpiry evaluated at an explicit time.
func (s *Scheduler) CacheExpiryAt(tier Tier, now time.Time) time.Duration {
	return s.RefreshIntervalAt(tier, now) * expiryFactor
}

// GetTimeUntilBusinessHours returns how long until the next business
// hours window opens, or zero while already inside one.
func (s *Scheduler) GetTimeUntilBusinessHours(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isBusinessHoursLocked(now) {
		return 0
	}
	return s.timeUntilLocked(now, true)
}

// GetTimeUntilBusinessHoursEnd returns how long until the current
// business hours window closes, or zero while outside one.
func (s *Scheduler) GetTimeUntilBusinessHoursEnd(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isBusinessHoursLocked(now) {
		return 0
	}
	return s.timeUntilLocked(now, false)
}

// timeUntilLocked walks forward one local hour boundary at a time until
// the in-window predicate matches want. The window predicate only
// changes on hour boundaries in the configured timezone, and
// time.Date's overflow normalization keeps the walk correct across DST
// transitions. The scan is capped at eight days, enough to cross any
// configured week shape.
func (s *Scheduler) timeUntilLocked(now time.Time, want bool) time.Duration {
	local := now.In(s.loc)

	for i := 1; i <= 8*24; i++ {
		candidate := time.Date(local.Year(), local.Month(), local.Day(), local.Hour()+i, 0, 0, 0, s.loc)
		if candidate.Before(now) {
			continue
		}
		if s.isBusinessHoursLocked(candidate) == want {
			return candidate.Sub(now)
		}
	}

	return 0
}

// normalizeTier maps unknown tier values to TierStable.
func normalizeTier(tier Tier) Tier {
	switch tier {
	case TierCritical, TierImportant, TierStable:
		return tier
	default:
		return TierStable
	}
}
