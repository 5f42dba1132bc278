package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"UD_daily_rewards/internal/metrics"
	"UD_daily_rewards/internal/model"
	"UD_daily_rewards/pkg/logger"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrConflict marks an attempt that lost to a concurrent transaction
	// and may be re-run from the top.
	ErrConflict  = errors.New("transaction conflict")
	ErrTxAborted = errors.New("transaction aborted after retries")
)

const DefaultMaxTxAttempts = 5

// PlayerTx is the read-then-write surface a store transaction exposes over
// a player's account and daily_login documents. Writes are applied only if
// the enclosing transaction commits.
type PlayerTx interface {
	// GetPlayer reads both documents from one snapshot. Absent documents
	// are returned as nil.
	GetPlayer(ctx context.Context, userID int64) (*model.UserAccount, *model.DailyMission, error)
	// CreateAccount inserts the account if it does not exist yet.
	CreateAccount(ctx context.Context, account *model.UserAccount) error
	IncrementEconomy(ctx context.Context, userID int64, coins, gems int64) error
	SaveDailyMission(ctx context.Context, mission *model.DailyMission) error
	SetVip(ctx context.Context, userID int64, vip model.VipStatus) error
}

type Repository struct {
	db            *sqlx.DB
	maxTxAttempts int
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Transaction runs t inside a serializable transaction. Serialization
// failures are reported as ErrConflict.
func (r *Repository) Transaction(ctx context.Context, t func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return classify(err)
	}
	err = t(tx)
	if err != nil {
		txErr := tx.Rollback()
		if txErr != nil {
			return errors.Wrapf(classify(err), "rollback error: %v", txErr)
		}
		return classify(err)
	}
	return classify(tx.Commit())
}

// RunTransaction executes fn and re-runs it from scratch whenever the
// database reports a serialization conflict.
func (r *Repository) RunTransaction(ctx context.Context, fn func(tx PlayerTx) error) error {
	return Retry(ctx, "postgres", r.maxTxAttempts, func() error {
		return r.Transaction(ctx, func(tx *sqlx.Tx) error {
			return fn(&playerTx{tx: tx})
		})
	})
}

type Config struct {
	Host          string `json:"host"`
	Port          string `json:"port"`
	User          string `json:"user"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	MaxTxAttempts int    `json:"maxTxAttempts"`
}

func New(cfg Config) (*Repository, error) {
	url := cfg.GetDatabaseURL()
	db, err := sqlx.Connect("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Logger().Info("Connected to database successfully")

	maxAttempts := cfg.MaxTxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxTxAttempts
	}

	return &Repository{
		db:            db,
		maxTxAttempts: maxAttempts,
	}, nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

// Postgres SQLSTATEs after which the whole transaction may simply be re-run.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return errors.Wrap(ErrConflict, pgErr.Message)
		}
	}
	return err
}

// Retry runs body until it returns something other than ErrConflict, at
// most maxAttempts times.
func Retry(ctx context.Context, store string, maxAttempts int, body func() error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxTxAttempts
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		start := time.Now()
		err = body()
		if !errors.Is(err, ErrConflict) {
			return err
		}

		metrics.TxRetries.WithLabelValues(store).Inc()
		logger.Logger().Debug("transaction conflict, retrying",
			zap.String("store", store),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
	}

	return errors.Wrapf(ErrTxAborted, "%d attempts, last error: %v", maxAttempts, err)
}
