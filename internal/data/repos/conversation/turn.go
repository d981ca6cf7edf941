package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/pitwall/internal/domain/conversation"
	"github.com/yungbote/pitwall/internal/platform/dbctx"
	"github.com/yungbote/pitwall/internal/platform/logger"
)

type TurnRepo interface {
	// Append stores one turn stamped with the repo clock and returns it.
	Append(dbc dbctx.Context, userID, role, message string) (*domain.Turn, error)
	// ListByUser returns every turn for userID, oldest first. limit > 0 keeps
	// only the most recent limit turns.
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.Turn, error)
}

type turnRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	clock *monotonicClock
}

func NewTurnRepo(db *gorm.DB, log *logger.Logger) TurnRepo {
	return &turnRepo{
		db:    db,
		log:   log.With("repo", "TurnRepo"),
		clock: &monotonicClock{now: time.Now},
	}
}

func (r *turnRepo) tx(dbc dbctx.Context) *gorm.DB {
	txx := dbc.Tx
	if txx == nil {
		txx = r.db
	}
	return txx.WithContext(dbc.Ctx)
}

func (r *turnRepo) Append(dbc dbctx.Context, userID, role, message string) (*domain.Turn, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	row := &domain.Turn{
		UserID:    userID,
		Timestamp: r.clock.Next(),
		Role:      role,
		Message:   message,
	}
	if err := r.tx(dbc).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *turnRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*domain.Turn, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("missing user_id")
	}
	q := r.tx(dbc).Model(&domain.Turn{}).Where("user_id = ?", userID)
	var out []*domain.Turn
	if limit > 0 {
		if err := q.Order(byTimestamp(true)).Limit(limit).Find(&out).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
		return out, nil
	}
	if err := q.Order(byTimestamp(false)).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// timestamp is a keyword in Postgres; the clause form gets it quoted.
func byTimestamp(desc bool) clause.OrderByColumn {
	return clause.OrderByColumn{Column: clause.Column{Name: "timestamp"}, Desc: desc}
}

// monotonicClock hands out strictly increasing UTC timestamps at microsecond
// resolution, the finest both Postgres and SQLite round-trip. Two turns
// written in the same microsecond would otherwise collide on the primary key
// and lose their relative order.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
