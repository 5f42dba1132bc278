package repository

import (
	"context"
	"database/sql"
	"fmt"

	"UD_daily_rewards/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"
)

type playerRow struct {
	AccountExists bool          `db:"account_exists"`
	CreatedAt     sql.NullTime  `db:"created_at"`
	Coins         sql.NullInt64 `db:"coins"`
	Gems          sql.NullInt64 `db:"gems"`
	VipIsActive   sql.NullBool  `db:"vip_is_active"`
	VipExpiresAt  sql.NullTime  `db:"vip_expires_at"`
	MissionExists bool          `db:"mission_exists"`
	Instances     []byte        `db:"instances"`
	UpdatedAt     sql.NullTime  `db:"updated_at"`
}

type playerTx struct {
	tx *sqlx.Tx
}

// selectPlayerQuery reads the account and its daily_login mission in one
// statement so both come from the same snapshot even when either is missing.
func selectPlayerQuery(userID int64) (string, []interface{}, error) {
	return squirrel.
		Select(
			"p.user_id IS NOT NULL AS account_exists",
			"p.created_at",
			"p.coins",
			"p.gems",
			"p.vip_is_active",
			"p.vip_expires_at",
			"m.user_id IS NOT NULL AS mission_exists",
			"m.instances",
			"m.updated_at",
		).
		FromSelect(squirrel.Select().Column("?::bigint AS user_id", userID), "k").
		LeftJoin("players p ON p.user_id = k.user_id").
		LeftJoin("player_missions m ON m.user_id = k.user_id AND m.mission_id = ?", model.DailyLoginMissionID).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func (t *playerTx) GetPlayer(ctx context.Context, userID int64) (*model.UserAccount, *model.DailyMission, error) {
	query, args, err := selectPlayerQuery(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build player select query: %w", err)
	}

	var row playerRow
	if err := t.tx.GetContext(ctx, &row, query, args...); err != nil {
		return nil, nil, fmt.Errorf("failed to select player: %w", err)
	}

	return decodePlayerRow(userID, &row)
}

func decodePlayerRow(userID int64, row *playerRow) (*model.UserAccount, *model.DailyMission, error) {
	var account *model.UserAccount
	if row.AccountExists {
		account = &model.UserAccount{
			UserID:    userID,
			CreatedAt: row.CreatedAt.Time,
			Economy: model.Economy{
				Coins: row.Coins.Int64,
				Gems:  row.Gems.Int64,
			},
			Vip: model.VipStatus{
				IsActive: row.VipIsActive.Bool,
			},
		}
		if row.VipExpiresAt.Valid {
			expiresAt := row.VipExpiresAt.Time
			account.Vip.ExpiresAt = &expiresAt
		}
	}

	var mission *model.DailyMission
	if row.MissionExists {
		mission = model.NewDailyMission(userID)
		mission.UpdatedAt = row.UpdatedAt.Time
		if len(row.Instances) > 0 {
			if err := json.Unmarshal(row.Instances, &mission.Instances); err != nil {
				return nil, nil, fmt.Errorf("%w: instances of user %d: %v", model.ErrCorruptState, userID, err)
			}
			if mission.Instances == nil {
				mission.Instances = make(map[string]model.DayClaimState)
			}
		}
	}

	return account, mission, nil
}

func (t *playerTx) CreateAccount(ctx context.Context, account *model.UserAccount) error {
	query, args, err := squirrel.
		Insert("players").
		SetMap(map[string]interface{}{
			"user_id":        account.UserID,
			"created_at":     account.CreatedAt,
			"coins":          account.Economy.Coins,
			"gems":           account.Economy.Gems,
			"vip_is_active":  account.Vip.IsActive,
			"vip_expires_at": account.Vip.ExpiresAt,
		}).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build player insert query: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}

	return nil
}

func (t *playerTx) IncrementEconomy(ctx context.Context, userID int64, coins, gems int64) error {
	query, args, err := squirrel.
		Update("players").
		Set("coins", squirrel.Expr("coins + ?", coins)).
		Set("gems", squirrel.Expr("gems + ?", gems)).
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build economy update query: %w", err)
	}

	return t.execOne(ctx, query, args)
}

func (t *playerTx) SaveDailyMission(ctx context.Context, mission *model.DailyMission) error {
	instances, err := json.Marshal(mission.Instances)
	if err != nil {
		return fmt.Errorf("failed to encode mission instances: %w", err)
	}

	query, args, err := squirrel.
		Insert("player_missions").
		SetMap(map[string]interface{}{
			"user_id":    mission.UserID,
			"mission_id": model.DailyLoginMissionID,
			"instances":  string(instances),
			"updated_at": mission.UpdatedAt,
		}).
		Suffix("ON CONFLICT (user_id, mission_id) DO UPDATE SET instances = EXCLUDED.instances, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build mission upsert query: %w", err)
	}

	if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert mission: %w", err)
	}

	return nil
}

func (t *playerTx) SetVip(ctx context.Context, userID int64, vip model.VipStatus) error {
	query, args, err := squirrel.
		Update("players").
		SetMap(map[string]interface{}{
			"vip_is_active":  vip.IsActive,
			"vip_expires_at": vip.ExpiresAt,
		}).
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build vip update query: %w", err)
	}

	return t.execOne(ctx, query, args)
}

func (t *playerTx) execOne(ctx context.Context, query string, args []interface{}) error {
	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}
