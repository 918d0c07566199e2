package taskapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	taskdb "github.com/nao1215/taskhub/internal/taskapi/db"
)

// handleCreateUser はユーザー登録を処理するハンドラを返す。
// 同じemailのユーザーが既に存在する場合は追加せずにその旨を返す。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := bindDocument(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		email, _ := doc["email"].(string)
		if email == "" {
			respondError(c, http.StatusBadRequest, "email is required")
			return
		}

		raw, err := encodeDocument(doc)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to create user")
			log.Printf("ユーザー登録エラー: %v", err)
			return
		}

		userID := uuid.New().String()
		inserted, err := s.queries.CreateUserIfAbsent(c.Request.Context(), taskdb.CreateUserIfAbsentParams{
			ID:        userID,
			Email:     email,
			Document:  raw,
			CreatedAt: s.now().UnixMilli(),
		})
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to create user")
			log.Printf("ユーザー登録エラー: %v", err)
			return
		}

		if inserted == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "User Already exists"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"acknowledged": true, "insertedId": userID})
	}
}

// handleListUsers はユーザー一覧取得を処理するハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.queries.ListUsers(c.Request.Context())
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to list users")
			log.Printf("ユーザー一覧取得エラー: %v", err)
			return
		}

		responses := make([]map[string]any, 0, len(users))
		for _, u := range users {
			resp, err := documentResponse(u.ID, u.Document, u.CreatedAt)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "failed to list users")
				log.Printf("ユーザー変換エラー: id=%s, error=%v", u.ID, err)
				return
			}
			responses = append(responses, resp)
		}

		c.JSON(http.StatusOK, responses)
	}
}
