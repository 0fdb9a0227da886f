package database

import (
	"context"

	"github.com/SakuraBurst/bored/internal/bored/types"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const markCompleteQuery = "update tasks set completed = true where task_id = $1 and username = $2 returning task_id, username, completed"

// lockUserQuery does not conflict with the key share lock taken by foreign key
// checks, so task and badge inserts for the user are not blocked.
const lockUserQuery = "select completed_tasks from users where username = $1 for no key update"

func scanTask(row pgx.Row) (*types.Task, error) {
	task := &types.Task{}
	if err := row.Scan(&task.TaskID, &task.UserName, &task.Completed); err != nil {
		return nil, err
	}
	return task, nil
}

func (d *DB) AddTask(ctx context.Context, userName string, taskID int) (*types.Task, error) {
	row := d.Conn.QueryRow(ctx, "insert into tasks (username, task_id) values ($1, $2) on conflict (username, task_id) do nothing returning task_id, username, completed", userName, taskID)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskAlreadyExist
	}
	if pgCode(err) == foreignKeyViolation {
		return nil, ErrUserNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return task, nil
}

// MarkTaskComplete flips the task to completed. It does not touch the owner's
// counter; CompleteTask does both.
func (d *DB) MarkTaskComplete(ctx context.Context, userName string, taskID int) (*types.Task, error) {
	if err := userExists(ctx, d.Conn, userName); err != nil {
		return nil, err
	}
	task, err := scanTask(d.Conn.QueryRow(ctx, markCompleteQuery, taskID, userName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTaskNotExist
	}
	if err != nil {
		return nil, errors.Wrap(err, "row.Scan failed: ")
	}
	return task, nil
}

// CompleteTask marks the task completed and bumps the owner's counter in one
// transaction. Both rows are locked first, and the counter only moves on the
// pending -> completed transition, so repeated or concurrent completions never
// double count or lose an increment.
func (d *DB) CompleteTask(ctx context.Context, userName string, taskID int) (*types.Task, *types.User, error) {
	tx, err := d.Conn.Begin(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "conn.Begin failed: ")
	}

	rollback := func() {
		if err := tx.Rollback(ctx); err != nil {
			d.logger.Error("tx.Rollback failed", zap.Error(err))
		}
	}

	var counter int
	err = tx.QueryRow(ctx, lockUserQuery, userName).Scan(&counter)
	if err != nil {
		rollback()
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrUserNotExist
		}
		return nil, nil, errors.Wrap(err, "row.Scan failed: ")
	}

	var completed bool
	err = tx.QueryRow(ctx, "select completed from tasks where task_id = $1 and username = $2 for update", taskID, userName).Scan(&completed)
	if err != nil {
		rollback()
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrTaskNotExist
		}
		return nil, nil, errors.Wrap(err, "row.Scan failed: ")
	}

	task, err := scanTask(tx.QueryRow(ctx, markCompleteQuery, taskID, userName))
	if err != nil {
		rollback()
		return nil, nil, errors.Wrap(err, "row.Scan failed: ")
	}

	userQuery := "select " + userColumns + " from users where username = $1"
	if !completed {
		userQuery = "update users set completed_tasks = completed_tasks + 1 where username = $1 returning " + userColumns
	}
	user, err := scanUser(tx.QueryRow(ctx, userQuery, userName))
	if err != nil {
		rollback()
		return nil, nil, errors.Wrap(err, "row.Scan failed: ")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "tx.Commit failed: ")
	}
	return task, user, nil
}

func (d *DB) GetTasks(ctx context.Context, userName string) ([]*types.Task, error) {
	if err := userExists(ctx, d.Conn, userName); err != nil {
		return nil, err
	}
	rows, err := d.Conn.Query(ctx, "select task_id, username, completed from tasks where username = $1 order by task_id", userName)
	if err != nil {
		return nil, errors.Wrap(err, "conn.Query failed: ")
	}
	defer rows.Close()
	result, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[types.Task])
	if err != nil {
		return nil, errors.Wrap(err, "pgx.CollectRows failed: ")
	}
	return result, nil
}

func (d *DB) RemoveTask(ctx context.Context, userName string, taskID int) error {
	if err := userExists(ctx, d.Conn, userName); err != nil {
		return err
	}
	tag, err := d.Conn.Exec(ctx, "delete from tasks where task_id = $1 and username = $2", taskID, userName)
	if err != nil {
		return errors.Wrap(err, "conn.Exec failed: ")
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotExist
	}
	return nil
}
