package taskapi

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/taskhub/internal/config"
	"github.com/nao1215/taskhub/pkg/middleware"
)

// handleIssueToken はトークン発行を処理するハンドラを返す。
// リクエストボディのJSONオブジェクトをそのままクレームとして署名し、{"token": ...} を返す。
// 発行方針がregisteredの場合、emailが登録済みユーザーのものでなければ401を返す。
func (s *Server) handleIssueToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil || payload == nil {
			respondError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		if s.issuePolicy == config.IssuePolicyRegistered {
			registered, err := s.isRegistered(c.Request.Context(), payload)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "failed to look up user")
				log.Printf("ユーザー取得エラー: %v", err)
				return
			}
			if !registered {
				log.Printf("[Auth] 未登録ユーザーへのトークン発行を拒否しました")
				middleware.AbortUnauthorized(c)
				return
			}
		}

		token, err := s.issuer.Issue(payload)
		if errors.Is(err, middleware.ErrReservedClaim) {
			respondError(c, http.StatusBadRequest, "payload must not contain exp, iat or nbf")
			return
		}
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to issue token")
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// isRegistered はペイロードのemailが登録済みユーザーのものかを確認する。
func (s *Server) isRegistered(ctx context.Context, payload map[string]any) (bool, error) {
	email, _ := payload["email"].(string)
	if email == "" {
		return false, nil
	}

	_, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
