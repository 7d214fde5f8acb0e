package dict

import (
	"github.com/pkg/errors"

	"github.com/llxisdsh/dict/logger"
)

const (
	// defaultMinCapacity is the bucket count of a new Dict and the floor
	// that Shrink never goes below.
	defaultMinCapacity = 4
	// defaultResizeRatio is the size/capacity ratio at which an insert
	// starts a grow.
	defaultResizeRatio = 1
	// defaultForceResizeRatio is the ratio that starts a grow even while
	// resizing is disabled with SetResizable(false).
	defaultForceResizeRatio = 5
	// defaultEmptyVisits bounds how many empty buckets one migration step
	// may skip before giving up for this call.
	defaultEmptyVisits = 10
	// defaultMigrateBatch is the number of steps MigrateFor performs
	// between two deadline checks.
	defaultMigrateBatch = 100
)

// Config defines configurable Dict options. The zero value is not valid;
// start from NewConfig.
type Config struct {
	// MinCapacity is the initial bucket count, rounded up to a power of 2.
	MinCapacity int `toml:"min-capacity"`
	// ResizeRatio triggers a grow once size >= ResizeRatio*buckets.
	ResizeRatio int `toml:"resize-ratio"`
	// ForceResizeRatio triggers a grow when resizing is disabled.
	ForceResizeRatio int `toml:"force-resize-ratio"`
	// EmptyVisits is the per-step budget of empty buckets a migration skips.
	EmptyVisits int `toml:"empty-visits"`
	// MigrateBatch is the number of migration steps between deadline checks
	// in MigrateFor.
	MigrateBatch int `toml:"migrate-batch"`

	Logger logger.Logger `toml:"-"`
}

// NewConfig returns the default configuration.
func NewConfig() *Config {
	return &Config{
		MinCapacity:      defaultMinCapacity,
		ResizeRatio:      defaultResizeRatio,
		ForceResizeRatio: defaultForceResizeRatio,
		EmptyVisits:      defaultEmptyVisits,
		MigrateBatch:     defaultMigrateBatch,
		Logger:           logger.NopLogger,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case c.MinCapacity < 1:
		return errors.Errorf("min-capacity must be positive, got %d", c.MinCapacity)
	case c.ResizeRatio < 1:
		return errors.Errorf("resize-ratio must be positive, got %d", c.ResizeRatio)
	case c.ForceResizeRatio < c.ResizeRatio:
		return errors.Errorf("force-resize-ratio (%d) must not be below resize-ratio (%d)",
			c.ForceResizeRatio, c.ResizeRatio)
	case c.EmptyVisits < 1:
		return errors.Errorf("empty-visits must be positive, got %d", c.EmptyVisits)
	case c.MigrateBatch < 1:
		return errors.Errorf("migrate-batch must be positive, got %d", c.MigrateBatch)
	}
	return nil
}

// WithConfig copies every field of cfg. Options listed after it still apply.
func WithConfig(cfg Config) func(*Config) {
	return func(c *Config) {
		*c = cfg
	}
}

// WithMinCapacity sets the initial bucket count, which is also the floor
// for Shrink. It is rounded up to a power of 2.
func WithMinCapacity(n int) func(*Config) {
	return func(c *Config) {
		c.MinCapacity = n
	}
}

// WithPresize configures the Dict with buckets enough to hold sizeHint
// entries without growing, at the resize ratio in effect when the option
// is applied. Like WithMinCapacity, the result is also the shrink floor.
// If sizeHint is zero or negative, the value is ignored.
func WithPresize(sizeHint int) func(*Config) {
	return func(c *Config) {
		if sizeHint > 0 {
			c.MinCapacity = max(c.MinCapacity, sizeHint/max(c.ResizeRatio, 1)+1)
		}
	}
}

// WithResizeRatio sets the load factor that triggers a grow.
func WithResizeRatio(ratio int) func(*Config) {
	return func(c *Config) {
		c.ResizeRatio = ratio
	}
}

// WithForceResizeRatio sets the load factor that triggers a grow while
// resizing is disabled.
func WithForceResizeRatio(ratio int) func(*Config) {
	return func(c *Config) {
		c.ForceResizeRatio = ratio
	}
}

// WithEmptyVisits sets how many empty buckets one migration step may skip.
func WithEmptyVisits(n int) func(*Config) {
	return func(c *Config) {
		c.EmptyVisits = n
	}
}

// WithMigrateBatch sets the number of steps MigrateFor performs between
// two clock reads.
func WithMigrateBatch(n int) func(*Config) {
	return func(c *Config) {
		c.MigrateBatch = n
	}
}

// WithLogger sets the logger that receives resize events at debug level.
func WithLogger(l logger.Logger) func(*Config) {
	return func(c *Config) {
		c.Logger = l
	}
}
