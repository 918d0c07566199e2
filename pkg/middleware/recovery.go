package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalErrorMessage はハンドラがパニックした場合に返すメッセージ。
const InternalErrorMessage = "internal server error"

// Recovery はハンドラのパニックを500レスポンスに変換するGinミドルウェアを返す。
// Gateを通過したリクエストであれば、ログに利用者のemailを含める。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			caller := "-"
			if identity, ok := GetIdentity(c); ok && identity.Email() != "" {
				caller = identity.Email()
			}
			log.Printf("[PANIC] %s %s caller=%s: %v", c.Request.Method, c.Request.URL.Path, caller, r)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   true,
				"message": InternalErrorMessage,
			})
		}()
		c.Next()
	}
}
