package db

import (
	"context"
)

const createUserIfAbsent = `-- name: CreateUserIfAbsent :execrows
INSERT INTO users (id, email, document, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (email) DO NOTHING
`

// CreateUserIfAbsentParams はCreateUserIfAbsentの引数。
type CreateUserIfAbsentParams struct {
	ID        string
	Email     string
	Document  string
	CreatedAt int64
}

// CreateUserIfAbsent はメールアドレスが未登録の場合のみユーザーを追加する。
// 追加した行数を返し、既に登録済みの場合は0を返す。
func (q *Queries) CreateUserIfAbsent(ctx context.Context, arg CreateUserIfAbsentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, createUserIfAbsent, arg.ID, arg.Email, arg.Document, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, document, created_at FROM users WHERE email = ?
`

// GetUserByEmail はメールアドレスでユーザーを取得する。存在しない場合はsql.ErrNoRows。
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.Document, &i.CreatedAt)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT id, email, document, created_at FROM users ORDER BY created_at DESC, rowid DESC
`

// ListUsers はすべてのユーザーを登録日時の新しい順に返す。
func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(&i.ID, &i.Email, &i.Document, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
