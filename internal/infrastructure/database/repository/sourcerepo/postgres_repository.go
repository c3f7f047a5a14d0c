package sourcerepo

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainsource "w9-search/internal/domain/source"
	"w9-search/internal/infrastructure/database/dbschema"
	"w9-search/internal/utils/platformerrors"
)

// PostgresRepository persists sources via gorm.
type PostgresRepository struct {
	db *gorm.DB
}

var _ domainsource.Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the source or, when the URL already exists, refreshes its
// title and content. The returned source always carries the persisted row id.
func (r *PostgresRepository) Upsert(ctx context.Context, src *domainsource.Source) (*domainsource.Source, error) {
	entity := dbschema.NewSchemaSource(src)
	entity.ID = 0

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "url"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "content", "updated_at"}),
		}).
		Create(entity).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"upsert source", err, "")
	}

	// On conflict the insert does not report the existing id; read it back.
	var stored dbschema.Source
	if err := r.db.WithContext(ctx).Where("url = ?", src.URL).First(&stored).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"load upserted source", err, "")
	}
	return stored.EtoD(), nil
}

// SearchByKeywords returns sources whose title or content matches any of the
// keywords, newest first.
func (r *PostgresRepository) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]domainsource.Source, error) {
	if limit <= 0 {
		limit = 5
	}

	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).Model(&dbschema.Source{})
	conditions := r.db.Session(&gorm.Session{NewDB: true})
	for _, kw := range cleaned {
		pattern := "%" + kw + "%"
		conditions = conditions.Or("title ILIKE ? OR content ILIKE ?", pattern, pattern)
	}

	var entities []dbschema.Source
	if err := query.Where(conditions).Order("created_at DESC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"search sources", err, "")
	}

	out := make([]domainsource.Source, 0, len(entities))
	for i := range entities {
		out = append(out, *entities[i].EtoD())
	}
	return out, nil
}

// Recent returns the newest sources.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]domainsource.Source, error) {
	if limit <= 0 {
		limit = 20
	}

	var entities []dbschema.Source
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"list recent sources", err, "")
	}

	out := make([]domainsource.Source, 0, len(entities))
	for i := range entities {
		out = append(out, *entities[i].EtoD())
	}
	return out, nil
}
