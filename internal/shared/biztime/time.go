// Package biztime provides time utilities shared by the domain and the
// infrastructure layers.
//
// All storage and transport use UTC. The business timezone is only used when a
// calendar boundary has to be computed.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTimezone is the default business timezone.
	DefaultTimezone = "UTC"

	// MySQLLayout is the layout accepted for externally supplied dates.
	MySQLLayout = "2006-01-02 15:04:05"
)

var (
	bizLocation     *time.Location
	bizLocationOnce sync.Once
	initErr         error
)

// Init initializes the business timezone. Should be called once at startup.
func Init(tz string) error {
	bizLocationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		bizLocation, initErr = time.LoadLocation(tz)
	})
	return initErr
}

// Location returns the business timezone, initializing the default on first use.
func Location() *time.Location {
	if bizLocation == nil {
		if err := Init(""); err != nil {
			panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
		}
	}
	return bizLocation
}

// NowUTC returns current time in UTC truncated to whole seconds, the
// precision every stored date uses.
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return NowUTC()
}

// FixedClock always returns the same instant until moved.
type FixedClock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now.UTC()}
}

func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to now.
func (c *FixedClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now.UTC()
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ParseMySQL parses a "2006-01-02 15:04:05" string as UTC.
func ParseMySQL(value string) (time.Time, error) {
	t, err := time.ParseInLocation(MySQLLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q: %w", value, err)
	}
	return t, nil
}

// FormatMySQL formats t in the MySQL layout, or "0" for the zero time.
func FormatMySQL(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return t.UTC().Format(MySQLLayout)
}

// FormatInBizTimezone formats a UTC time as a string in business timezone.
func FormatInBizTimezone(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}
