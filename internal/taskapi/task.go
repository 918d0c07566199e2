package taskapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	taskdb "github.com/nao1215/taskhub/internal/taskapi/db"
)

// toTaskResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toTaskResponses(tasks []taskdb.Task) ([]map[string]any, error) {
	responses := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		resp, err := documentResponse(t.ID, t.Document, t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("タスク %s の変換に失敗: %w", t.ID, err)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// taskIDParam はパスパラメータ :id を検証して返す。
// UUIDとして解釈できない場合は400を返してfalseを返す。
func taskIDParam(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, "invalid task id")
		return "", false
	}
	return id, true
}

// handleListTasks はタスク一覧取得を処理するハンドラを返す。
// 作成日時の新しい順に返す。
func (s *Server) handleListTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := s.queries.ListTasks(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to list tasks")
			log.Printf("タスク一覧取得エラー: %v", err)
			return
		}

		responses, err := toTaskResponses(tasks)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to list tasks")
			log.Printf("タスク一覧変換エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleSearchTasks はタイトルによるタスク検索を処理するハンドラを返す。
// クエリパラメータ q でタイトルの部分文字列を指定する。
func (s *Server) handleSearchTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			respondError(c, http.StatusBadRequest, "query parameter q is required")
			return
		}

		tasks, err := s.queries.SearchTasksByTitle(c.Request.Context(), q)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to search tasks")
			log.Printf("タスク検索エラー: %v", err)
			return
		}

		responses, err := toTaskResponses(tasks)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to search tasks")
			log.Printf("タスク検索結果変換エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, responses)
	}
}

// handleGetTask はタスク詳細取得を処理するハンドラを返す。
func (s *Server) handleGetTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := taskIDParam(c)
		if !ok {
			return
		}

		task, err := s.queries.GetTaskByID(c.Request.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "task not found")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to get task")
			log.Printf("タスク取得エラー: %v", err)
			return
		}

		resp, err := documentResponse(task.ID, task.Document, task.CreatedAt)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to get task")
			log.Printf("タスク変換エラー: id=%s, error=%v", task.ID, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// handleCreateTask はタスク作成を処理するハンドラを返す。
// 作成日時はサーバー側で付与する。
func (s *Server) handleCreateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := bindDocument(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		raw, err := encodeDocument(doc)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to create task")
			log.Printf("タスク作成エラー: %v", err)
			return
		}

		taskID := uuid.New().String()
		if err := s.queries.CreateTask(c.Request.Context(), taskdb.CreateTaskParams{
			ID:        taskID,
			Document:  raw,
			CreatedAt: s.now().UnixMilli(),
		}); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to create task")
			log.Printf("タスク作成エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"acknowledged": true, "insertedId": taskID})
	}
}

// handleUpdateTask はタスクの部分更新を処理するハンドラを返す。
// リクエストボディのトップレベルのフィールドを既存のドキュメントに上書きする。
func (s *Server) handleUpdateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := taskIDParam(c)
		if !ok {
			return
		}

		patch, err := bindDocument(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		matched, modified, err := s.updateTask(c.Request.Context(), id, patch)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to update task")
			log.Printf("タスク更新エラー: id=%s, error=%v", id, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"acknowledged":  true,
			"matchedCount":  matched,
			"modifiedCount": modified,
		})
	}
}

// updateTask はトランザクション内でドキュメントを読み込み、patchを適用して保存する。
// 一致した件数と変更した件数を返す。
func (s *Server) updateTask(ctx context.Context, id string, patch map[string]any) (int, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	task, err := q.GetTaskByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("タスクの取得に失敗: %w", err)
	}

	doc, err := decodeDocument(task.Document)
	if err != nil {
		return 0, 0, err
	}
	maps.Copy(doc, patch)

	raw, err := encodeDocument(doc)
	if err != nil {
		return 0, 0, err
	}
	if raw == task.Document {
		return 1, 0, nil
	}

	if _, err := q.UpdateTaskDocument(ctx, taskdb.UpdateTaskDocumentParams{
		Document: raw,
		ID:       id,
	}); err != nil {
		return 0, 0, fmt.Errorf("タスクの保存に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return 1, 1, nil
}

// handleDeleteTask はタスク削除を処理するハンドラを返す。
// 存在しないIDの場合は deletedCount が0になる。
func (s *Server) handleDeleteTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := taskIDParam(c)
		if !ok {
			return
		}

		deleted, err := s.queries.DeleteTask(c.Request.Context(), id)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to delete task")
			log.Printf("タスク削除エラー: id=%s, error=%v", id, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"acknowledged": true, "deletedCount": deleted})
	}
}
