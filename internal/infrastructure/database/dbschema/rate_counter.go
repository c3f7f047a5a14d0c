package dbschema

import (
	"time"

	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(RateCounter{})
}

type RateCounter struct {
	ID          uint      `gorm:"primaryKey"`
	Provider    string    `gorm:"size:64;not null;uniqueIndex:idx_rate_provider_window,priority:1"`
	Window      string    `gorm:"size:16;not null;uniqueIndex:idx_rate_provider_window,priority:2"`
	Used        int64     `gorm:"not null;default:0"`
	LimitMax    int64     `gorm:"column:limit_max;not null;default:0"`
	WindowStart time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (RateCounter) TableName() string {
	return "engine.rate_counters"
}

func NewSchemaRateCounter(c ratelimit.Counter) *RateCounter {
	return &RateCounter{
		Provider:    c.Provider.String(),
		Window:      string(c.Window),
		Used:        c.Used,
		LimitMax:    c.Limit,
		WindowStart: c.WindowStart,
	}
}

// EtoD converts a database counter into its domain representation.
func (c *RateCounter) EtoD() ratelimit.Counter {
	return ratelimit.Counter{
		Provider:    provider.Kind(c.Provider),
		Window:      ratelimit.Window(c.Window),
		Used:        c.Used,
		Limit:       c.LimitMax,
		WindowStart: c.WindowStart,
	}
}
