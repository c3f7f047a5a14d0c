package raterepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"w9-search/internal/domain/provider"
	"w9-search/internal/domain/ratelimit"
	"w9-search/internal/infrastructure/database/dbschema"
	"w9-search/internal/utils/platformerrors"
)

// PostgresRepository persists rate counters via gorm. It backs the rate gate
// so usage survives restarts.
type PostgresRepository struct {
	db *gorm.DB
}

var _ ratelimit.Store = (*PostgresRepository)(nil)

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetCounters(ctx context.Context, kind provider.Kind) ([]ratelimit.Counter, error) {
	var entities []dbschema.RateCounter
	err := r.db.WithContext(ctx).Where("provider = ?", kind.String()).Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"load rate counters", err, "")
	}

	out := make([]ratelimit.Counter, 0, len(entities))
	for i := range entities {
		out = append(out, entities[i].EtoD())
	}
	return out, nil
}

// PutCounters upserts every counter on its (provider, window) key.
func (r *PostgresRepository) PutCounters(ctx context.Context, counters []ratelimit.Counter) error {
	if len(counters) == 0 {
		return nil
	}

	entities := make([]dbschema.RateCounter, 0, len(counters))
	for _, c := range counters {
		entities = append(entities, *dbschema.NewSchemaRateCounter(c))
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "window"}},
			DoUpdates: clause.AssignmentColumns([]string{"used", "limit_max", "window_start", "updated_at"}),
		}).
		Create(&entities).Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"persist rate counters", err, "")
	}
	return nil
}

func (r *PostgresRepository) AllCounters(ctx context.Context) ([]ratelimit.Counter, error) {
	var entities []dbschema.RateCounter
	err := r.db.WithContext(ctx).Order("provider, window").Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"load all rate counters", err, "")
	}

	out := make([]ratelimit.Counter, 0, len(entities))
	for i := range entities {
		out = append(out, entities[i].EtoD())
	}
	return out, nil
}
