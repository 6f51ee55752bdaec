package basic

import (
	"time"

	tessera "github.com/itsatony/go-tessera"
)

// Clock is the implicit object behind the now action. One Clock is shared
// by a template and every template it includes.
type Clock struct {
	start time.Time
}

// Start returns the time the outermost render started.
func (c *Clock) Start() time.Time {
	return c.start
}

// ClockEnricher installs a Clock in every template context.
type ClockEnricher struct {
	now func() time.Time
}

// NewClockEnricher creates a ClockEnricher. A nil now uses time.Now.
func NewClockEnricher(now func() time.Time) *ClockEnricher {
	if now == nil {
		now = time.Now
	}
	return &ClockEnricher{now: now}
}

// BeforeTemplate implements tessera.ContextEnricher. Included templates
// reuse the clock of their enclosing template.
func (e *ClockEnricher) BeforeTemplate(c *tessera.Context) error {
	if inherited, ok := c.LookupInheritedImplicit(ImplicitClock); ok {
		return c.AddImplicitObject(ImplicitClock, inherited)
	}
	return c.AddImplicitObject(ImplicitClock, &Clock{start: e.now()})
}

// AfterTemplate implements tessera.ContextEnricher.
func (e *ClockEnricher) AfterTemplate(c *tessera.Context) error {
	c.RemoveImplicitObject(ImplicitClock)
	return nil
}
