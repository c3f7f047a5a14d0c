package threadrepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainthread "w9-search/internal/domain/thread"
	"w9-search/internal/infrastructure/database/dbschema"
	"w9-search/internal/utils/platformerrors"
)

// PostgresRepository persists threads and messages via gorm.
type PostgresRepository struct {
	db *gorm.DB
}

var _ domainthread.Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *gorm.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateThread(ctx context.Context, t *domainthread.Thread) (*domainthread.Thread, error) {
	entity := dbschema.NewSchemaThread(t)
	entity.ID = 0
	if entity.PublicID == "" {
		entity.PublicID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"create thread", err, "")
	}
	return entity.EtoD(), nil
}

func (r *PostgresRepository) FindThread(ctx context.Context, publicID string) (*domainthread.Thread, error) {
	var entity dbschema.Thread
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"thread not found: "+publicID, err, "")
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"find thread", err, "")
	}
	return entity.EtoD(), nil
}

func (r *PostgresRepository) ListThreads(ctx context.Context, limit int) ([]domainthread.Thread, error) {
	if limit <= 0 {
		limit = 50
	}

	var entities []dbschema.Thread
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"list threads", err, "")
	}

	out := make([]domainthread.Thread, 0, len(entities))
	for i := range entities {
		out = append(out, *entities[i].EtoD())
	}
	return out, nil
}

func (r *PostgresRepository) AppendMessage(ctx context.Context, m *domainthread.Message) (*domainthread.Message, error) {
	entity := dbschema.NewSchemaMessage(m)
	entity.ID = 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		// Touch the parent so thread listing orders by last activity.
		return tx.Model(&dbschema.Thread{}).Where("id = ?", m.ThreadID).
			Update("updated_at", tx.NowFunc()).Error
	})
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"append message", err, "")
	}
	return entity.EtoD(), nil
}

// RecentMessages returns the newest limit messages of the thread in
// chronological order.
func (r *PostgresRepository) RecentMessages(ctx context.Context, threadID uint, limit int) ([]domainthread.Message, error) {
	if limit <= 0 {
		limit = domainthread.HistoryLimit
	}

	var entities []dbschema.Message
	err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).
		Order("created_at DESC").Limit(limit).Find(&entities).Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"load thread messages", err, "")
	}

	out := make([]domainthread.Message, 0, len(entities))
	for i := len(entities) - 1; i >= 0; i-- {
		out = append(out, *entities[i].EtoD())
	}
	return out, nil
}
