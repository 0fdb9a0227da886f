package database

import (
	"context"

	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
)

func (d *DB) AddBadge(ctx context.Context, userName string, badgeID int) (*types.CollectedBadge, error) {
	row := d.Conn.QueryRow(ctx, "insert into collected_badges (username, badge_id) values ($1, $2) on conflict (username, badge_id) do nothing returning id, badge_id, username", userName, badgeID)
	badge := &types.CollectedBadge{}
	err := row.Scan(&badge.ID, &badge.BadgeID, &badge.UserName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBadgeAlreadyCollected
	}
	if pgCode(err) == foreignKeyViolation {
		return nil, ErrUserOrBadgeNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return badge, nil
}

// GetBadges joins the user's collected badges against the catalog. Ids with no
// catalog entry are dropped by the join.
func (d *DB) GetBadges(ctx context.Context, userName string) ([]*types.BadgeDetails, error) {
	if err := userExists(ctx, d.Conn, userName); err != nil {
		return nil, err
	}
	rows, err := d.Conn.Query(ctx, "select b.badge_id, b.unlock_num, b.message from collected_badges cb join badges b on b.badge_id = cb.badge_id where cb.username = $1 order by b.badge_id", userName)
	if err != nil {
		return nil, errors.Wrap(err, "conn.Query failed: ")
	}
	defer rows.Close()
	result, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[types.BadgeDetails])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows failed: ")
	}
	return result, nil
}
