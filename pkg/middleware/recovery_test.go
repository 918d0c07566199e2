package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestRecovery はRecoveryミドルウェアがパニックを統一されたエラーレスポンスに変換することを検証する。
func TestRecovery(t *testing.T) {
	t.Parallel()

	panics := []struct {
		name  string
		value any
	}{
		{name: "文字列", value: "タスクの変換で想定外の状態"},
		{name: "整数", value: 42},
		{name: "error型", value: errors.New("壊れたドキュメント")},
		{name: "ErrAbortHandler", value: http.ErrAbortHandler},
	}

	for _, p := range panics {
		p := p
		t.Run(p.name+"のパニックは500を返す", func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(Recovery())
			router.PATCH("/tasks/:id", func(_ *gin.Context) {
				panic(p.value)
			})

			req := httptest.NewRequest(http.MethodPatch, "/tasks/abc", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusInternalServerError)
			}
			var body map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("レスポンスボディのパースに失敗: %v", err)
			}
			if body["error"] != true || body["message"] != "internal server error" {
				t.Errorf("body = %v; 期待値 = {error: true, message: internal server error}", body)
			}
		})
	}

	t.Run("パニック後も次のリクエストを処理できる", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery())
		router.GET("/tasks/:id", func(c *gin.Context) {
			if c.Param("id") == "broken" {
				panic("壊れたタスク")
			}
			c.JSON(http.StatusOK, gin.H{"_id": c.Param("id")})
		})

		for _, tc := range []struct {
			path string
			want int
		}{
			{"/tasks/broken", http.StatusInternalServerError},
			{"/tasks/fine", http.StatusOK},
		} {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != tc.want {
				t.Errorf("%s のステータスコード = %d; 期待値 = %d", tc.path, w.Code, tc.want)
			}
		}
	})

	t.Run("Gate通過後のパニックも500を返す", func(t *testing.T) {
		t.Parallel()

		issuer := newTestIssuer(t, testSecret, issuedAt)
		router := gin.New()
		router.Use(Recovery())
		router.DELETE("/tasks/:id", newTestGate(t, testSecret, issuedAt).Handler(), func(_ *gin.Context) {
			panic("削除中の想定外の状態")
		})

		req := httptest.NewRequest(http.MethodDelete, "/tasks/abc", nil)
		req.Header.Set("Authorization", "Bearer "+issueTestToken(t, issuer, map[string]any{"email": "panic@example.com"}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusInternalServerError)
		}
	})

	t.Run("Gateで拒否されたリクエストには影響しない", func(t *testing.T) {
		t.Parallel()

		gate, err := NewGate(TokenConfig{Secret: []byte(testSecret)})
		if err != nil {
			t.Fatalf("NewGate() エラー: %v", err)
		}
		router := gin.New()
		router.Use(Recovery())
		router.GET("/tasks", gate.Handler(), func(_ *gin.Context) {
			panic("到達してはいけない")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusUnauthorized)
		}
	})
}
