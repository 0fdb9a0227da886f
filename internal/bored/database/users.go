package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
)

const userColumns = "username, first_name, last_name, email, completed_tasks, avatar"

func scanUser(row pgx.Row) (*types.User, error) {
	user := &types.User{}
	err := row.Scan(&user.UserName, &user.FirstName, &user.LastName, &user.Email, &user.CompletedTasks, &user.Avatar)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateNewUser expects user.Password to be hashed already.
func (d *DB) CreateNewUser(ctx context.Context, user *types.User) (*types.User, error) {
	row := d.Conn.QueryRow(ctx, "insert into users (username, password, first_name, last_name, email, completed_tasks, avatar) values ($1, $2, $3, $4, $5, $6, $7) on conflict (username) do nothing returning "+userColumns,
		user.UserName, user.Password, user.FirstName, user.LastName, user.Email, user.CompletedTasks, user.Avatar)
	created, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserAlreadyExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return created, nil
}

func (d *DB) GetUser(ctx context.Context, userName string) (*types.User, error) {
	user, err := scanUser(d.Conn.QueryRow(ctx, "select "+userColumns+" from users where username = $1", userName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return user, nil
}

// GetUserByUserName returns the user together with the password hash.
func (d *DB) GetUserByUserName(ctx context.Context, userName string) (*types.User, error) {
	row := d.Conn.QueryRow(ctx, "select "+userColumns+", password from users where username = $1", userName)
	user := &types.User{}
	err := row.Scan(&user.UserName, &user.FirstName, &user.LastName, &user.Email, &user.CompletedTasks, &user.Avatar, &user.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return user, nil
}

// UpdateUser writes only the fields present in update. A new password must
// already be hashed.
func (d *DB) UpdateUser(ctx context.Context, userName string, update *types.UserUpdate) (*types.User, error) {
	set, args := updateSet(update)
	if set == "" {
		return d.GetUser(ctx, userName)
	}
	args = append(args, userName)
	query := fmt.Sprintf("update users set %s where username = $%d returning %s", set, len(args), userColumns)
	user, err := scanUser(d.Conn.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return user, nil
}

func updateSet(update *types.UserUpdate) (string, []any) {
	var cols []string
	var args []any
	add := func(col string, value any) {
		args = append(args, value)
		cols = append(cols, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if update.FirstName != nil {
		add("first_name", *update.FirstName)
	}
	if update.LastName != nil {
		add("last_name", *update.LastName)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.Password != nil {
		add("password", *update.Password)
	}
	if update.CompletedTasks != nil {
		add("completed_tasks", *update.CompletedTasks)
	}
	if update.Avatar.Set {
		add("avatar", update.Avatar.Value)
	}
	return strings.Join(cols, ", "), args
}

// DeleteUser removes the user; tasks and collected badges go with it through
// on delete cascade.
func (d *DB) DeleteUser(ctx context.Context, userName string) error {
	var deleted string
	err := d.Conn.QueryRow(ctx, "delete from users where username = $1 returning username", userName).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotExist
	}
	if err != nil {
		return errors.Wrap(err, "row.Scan failed: ")
	}
	return nil
}

func (d *DB) GetLeaderboard(ctx context.Context) ([]*types.LeaderboardEntry, error) {
	rows, err := d.Conn.Query(ctx, "select username, completed_tasks, avatar from users order by completed_tasks desc, username")
	if err != nil {
		return nil, errors.Wrap(err, "conn.Query failed: ")
	}
	defer rows.Close()
	result, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[types.LeaderboardEntry])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows failed: ")
	}
	return result, nil
}
