package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/yungbote/pitwall/internal/domain/corpus"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type RunRepo interface {
	Start(dbc dbctx.Context) (*domain.IngestionRun, error)
	Finish(dbc dbctx.Context, id uuid.UUID, status string, stats domain.RunStats, runErr error) error
	// Latest returns nil, nil when no run was ever recorded.
	Latest(dbc dbctx.Context) (*domain.IngestionRun, error)
}

type runRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunRepo(db *gorm.DB, log *logger.Logger) RunRepo {
	return &runRepo{db: db, log: log.With("repo", "RunRepo")}
}

func (r *runRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *runRepo) Start(dbc dbctx.Context) (*domain.IngestionRun, error) {
	row := &domain.IngestionRun{
		Status:    domain.RunStatusRunning,
		Stats:     datatypes.JSON([]byte("{}")),
		StartedAt: time.Now().UTC(),
	}
	if err := r.tx(dbc).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *runRepo) Finish(dbc dbctx.Context, id uuid.UUID, status string, stats domain.RunStats, runErr error) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing run id")
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	now := time.Now().UTC()
	return r.tx(dbc).
		Model(&domain.IngestionRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       msg,
			"stats":       datatypes.JSON(raw),
			"finished_at": now,
		}).Error
}

func (r *runRepo) Latest(dbc dbctx.Context) (*domain.IngestionRun, error) {
	var row domain.IngestionRun
	err := r.tx(dbc).Order("started_at DESC").Limit(1).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
