package dbschema

import (
	"time"

	domainsource "w9-search/internal/domain/source"
	"w9-search/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Source{})
}

type Source struct {
	ID        uint      `gorm:"primaryKey"`
	URL       string    `gorm:"size:2048;not null;uniqueIndex"`
	Title     string    `gorm:"size:512"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Source) TableName() string {
	return "engine.sources"
}

func NewSchemaSource(s *domainsource.Source) *Source {
	return &Source{
		ID:      s.ID,
		URL:     s.URL,
		Title:   s.Title,
		Content: s.Content,
	}
}

// EtoD converts a database source into its domain representation.
func (s *Source) EtoD() *domainsource.Source {
	return &domainsource.Source{
		ID:        s.ID,
		URL:       s.URL,
		Title:     s.Title,
		Content:   s.Content,
		CreatedAt: s.CreatedAt,
	}
}
