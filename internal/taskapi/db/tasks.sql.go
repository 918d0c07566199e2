package db

import (
	"context"
	"database/sql"
)

const createTask = `-- name: CreateTask :exec
INSERT INTO tasks (id, document, created_at) VALUES (?, ?, ?)
`

// CreateTaskParams はCreateTaskの引数。
type CreateTaskParams struct {
	ID        string
	Document  string
	CreatedAt int64
}

// CreateTask はタスクを1件追加する。
func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) error {
	_, err := q.db.ExecContext(ctx, createTask, arg.ID, arg.Document, arg.CreatedAt)
	return err
}

const getTaskByID = `-- name: GetTaskByID :one
SELECT id, document, created_at FROM tasks WHERE id = ?
`

// GetTaskByID はIDでタスクを取得する。存在しない場合はsql.ErrNoRows。
func (q *Queries) GetTaskByID(ctx context.Context, id string) (Task, error) {
	row := q.db.QueryRowContext(ctx, getTaskByID, id)
	var i Task
	err := row.Scan(&i.ID, &i.Document, &i.CreatedAt)
	return i, err
}

const listTasks = `-- name: ListTasks :many
SELECT id, document, created_at FROM tasks ORDER BY created_at DESC, rowid DESC
`

// ListTasks はすべてのタスクを作成日時の新しい順に返す。
func (q *Queries) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, listTasks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

const searchTasksByTitle = `-- name: SearchTasksByTitle :many
SELECT id, document, created_at FROM tasks
WHERE json_type(document, '$.title') = 'text'
  AND instr(lower(json_extract(document, '$.title')), lower(?)) > 0
ORDER BY created_at DESC, rowid DESC
`

// SearchTasksByTitle はタイトルに部分文字列を含むタスクを返す。
// 文字列のタイトルのみが対象で、ASCII範囲の大文字小文字は区別しない。
func (q *Queries) SearchTasksByTitle(ctx context.Context, substr string) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx, searchTasksByTitle, substr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTasks(rows)
}

const updateTaskDocument = `-- name: UpdateTaskDocument :execrows
UPDATE tasks SET document = ? WHERE id = ?
`

// UpdateTaskDocumentParams はUpdateTaskDocumentの引数。
type UpdateTaskDocumentParams struct {
	Document string
	ID       string
}

// UpdateTaskDocument はタスク本体を置き換え、更新した行数を返す。
func (q *Queries) UpdateTaskDocument(ctx context.Context, arg UpdateTaskDocumentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTaskDocument, arg.Document, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTask = `-- name: DeleteTask :execrows
DELETE FROM tasks WHERE id = ?
`

// DeleteTask はタスクを削除し、削除した行数を返す。
func (q *Queries) DeleteTask(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTask, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// scanTasks は結果セットをTaskのスライスに変換する。
func scanTasks(rows *sql.Rows) ([]Task, error) {
	var items []Task
	for rows.Next() {
		var i Task
		if err := rows.Scan(&i.ID, &i.Document, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
