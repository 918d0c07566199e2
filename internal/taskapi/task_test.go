package taskapi

import (
	"net/http"
	"testing"

	"github.com/nao1215/taskhub/internal/config"
)

// createTestTask はテスト用にタスクを作成し、IDを返すヘルパー関数。
func createTestTask(t *testing.T, s *Server, token string, doc map[string]any) string {
	t.Helper()

	w := doRequest(t, s, http.MethodPost, "/tasks", doc, token)
	if w.Code != http.StatusOK {
		t.Fatalf("タスク作成のステータスコード = %d; 期待値 = %d (body=%s)", w.Code, http.StatusOK, w.Body.String())
	}
	id, _ := decodeJSON[map[string]any](t, w)["insertedId"].(string)
	if id == "" {
		t.Fatal("insertedId が空になっている")
	}
	return id
}

// TestHandleCreateTask はタスク作成ハンドラを検証する。
func TestHandleCreateTask(t *testing.T) {
	t.Parallel()

	t.Run("タスクを作成しcreatedAtが付与される", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

		id := createTestTask(t, s, token, map[string]any{
			"title":     "牛乳を買う",
			"status":    "todo",
			"_id":       "client-id",
			"createdAt": "1999-01-01T00:00:00Z",
		})

		w := doRequest(t, s, http.MethodGet, "/tasks/"+id, nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		task := decodeJSON[map[string]any](t, w)
		if task["_id"] != id {
			t.Errorf("_id = %v; 期待値 = %q", task["_id"], id)
		}
		if task["title"] != "牛乳を買う" {
			t.Errorf("title = %v; 期待値 = %q", task["title"], "牛乳を買う")
		}
		if task["status"] != "todo" {
			t.Errorf("status = %v; 期待値 = %q", task["status"], "todo")
		}
		if task["createdAt"] != "2026-03-01T12:00:01.000Z" {
			t.Errorf("createdAt = %v; 期待値 = %q", task["createdAt"], "2026-03-01T12:00:01.000Z")
		}
	})

	t.Run("旧パス /add-task でも作成できる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "legacy@example.com"})

		w := doRequest(t, s, http.MethodPost, "/add-task", map[string]any{"title": "旧クライアント"}, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		if resp := decodeJSON[map[string]any](t, w); resp["acknowledged"] != true {
			t.Errorf("acknowledged = %v; 期待値 = true", resp["acknowledged"])
		}
	})

	t.Run("オブジェクト以外のボディは400を返す", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

		for _, body := range []string{`["a"]`, `"text"`, "null", "{"} {
			w := doRequest(t, s, http.MethodPost, "/tasks", body, token)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body=%q のステータスコード = %d; 期待値 = %d", body, w.Code, http.StatusBadRequest)
			}
		}
	})
}

// TestHandleListTasks はタスク一覧取得ハンドラを検証する。
func TestHandleListTasks(t *testing.T) {
	t.Parallel()

	t.Run("作成日時の新しい順に返す", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		first := createTestTask(t, s, token, map[string]any{"title": "一番目"})
		second := createTestTask(t, s, token, map[string]any{"title": "二番目"})
		third := createTestTask(t, s, token, map[string]any{"title": "三番目"})

		w := doRequest(t, s, http.MethodGet, "/tasks", nil, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		tasks := decodeJSON[[]map[string]any](t, w)
		if len(tasks) != 3 {
			t.Fatalf("タスク数 = %d; 期待値 = 3", len(tasks))
		}
		for i, want := range []string{third, second, first} {
			if tasks[i]["_id"] != want {
				t.Errorf("tasks[%d]._id = %v; 期待値 = %q", i, tasks[i]["_id"], want)
			}
		}
	})

	t.Run("タスクが無い場合は空配列を返す", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

		w := doRequest(t, s, http.MethodGet, "/tasks", nil, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		if got := w.Body.String(); got != "[]" {
			t.Errorf("body = %q; 期待値 = %q", got, "[]")
		}
	})
}

// TestHandleSearchTasks はタスク検索ハンドラを検証する。
func TestHandleSearchTasks(t *testing.T) {
	t.Parallel()

	t.Run("タイトルの部分一致で検索できる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		report := createTestTask(t, s, token, map[string]any{"title": "Write Weekly Report"})
		createTestTask(t, s, token, map[string]any{"title": "Buy groceries"})
		createTestTask(t, s, token, map[string]any{"note": "タイトルなし report"})

		w := doRequest(t, s, http.MethodGet, "/tasks/search?q=report", nil, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		tasks := decodeJSON[[]map[string]any](t, w)
		if len(tasks) != 1 {
			t.Fatalf("タスク数 = %d; 期待値 = 1", len(tasks))
		}
		if tasks[0]["_id"] != report {
			t.Errorf("_id = %v; 期待値 = %q", tasks[0]["_id"], report)
		}
	})

	t.Run("LIKEのワイルドカードは文字として扱われる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		createTestTask(t, s, token, map[string]any{"title": "progress 50%"})
		createTestTask(t, s, token, map[string]any{"title": "progress 500"})

		w := doRequest(t, s, http.MethodGet, "/tasks/search?q="+"50%25", nil, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		tasks := decodeJSON[[]map[string]any](t, w)
		if len(tasks) != 1 || tasks[0]["title"] != "progress 50%" {
			t.Errorf("検索結果 = %v; 期待値 = progress 50%% のみ", tasks)
		}
	})

	t.Run("qが無い場合は400を返す", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

		w := doRequest(t, s, http.MethodGet, "/tasks/search", nil, token)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleGetTask はタスク詳細取得ハンドラのエラーパターンを検証する。
func TestHandleGetTask(t *testing.T) {
	t.Parallel()

	s := setupTestServer(t, config.IssuePolicyOpen)
	token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

	t.Run("存在しないIDは404を返す", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/tasks/00000000-0000-0000-0000-000000000000", nil, token)
		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("UUIDでないIDは400を返す", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/tasks/not-a-uuid", nil, token)
		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleUpdateTask はタスク部分更新ハンドラを検証する。
func TestHandleUpdateTask(t *testing.T) {
	t.Parallel()

	t.Run("指定したフィールドだけが上書きされる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		id := createTestTask(t, s, token, map[string]any{"title": "原稿", "status": "todo"})

		w := doRequest(t, s, http.MethodPatch, "/tasks/"+id, map[string]any{"status": "done", "_id": "ignored"}, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		resp := decodeJSON[map[string]any](t, w)
		if resp["matchedCount"] != float64(1) || resp["modifiedCount"] != float64(1) {
			t.Errorf("matchedCount = %v, modifiedCount = %v; 期待値 = 1, 1", resp["matchedCount"], resp["modifiedCount"])
		}

		task := decodeJSON[map[string]any](t, doRequest(t, s, http.MethodGet, "/tasks/"+id, nil, token))
		if task["title"] != "原稿" {
			t.Errorf("title = %v; 期待値 = %q", task["title"], "原稿")
		}
		if task["status"] != "done" {
			t.Errorf("status = %v; 期待値 = %q", task["status"], "done")
		}
		if task["_id"] != id {
			t.Errorf("_id = %v; 期待値 = %q", task["_id"], id)
		}
	})

	t.Run("同じ値での更新はmodifiedCountが0になる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		id := createTestTask(t, s, token, map[string]any{"title": "同じ"})

		w := doRequest(t, s, http.MethodPatch, "/tasks/"+id, map[string]any{"title": "同じ"}, token)

		resp := decodeJSON[map[string]any](t, w)
		if resp["matchedCount"] != float64(1) || resp["modifiedCount"] != float64(0) {
			t.Errorf("matchedCount = %v, modifiedCount = %v; 期待値 = 1, 0", resp["matchedCount"], resp["modifiedCount"])
		}
	})

	t.Run("存在しないIDはmatchedCountが0になる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

		w := doRequest(t, s, http.MethodPatch, "/tasks/00000000-0000-0000-0000-000000000000", map[string]any{"title": "x"}, token)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		resp := decodeJSON[map[string]any](t, w)
		if resp["matchedCount"] != float64(0) || resp["modifiedCount"] != float64(0) {
			t.Errorf("matchedCount = %v, modifiedCount = %v; 期待値 = 0, 0", resp["matchedCount"], resp["modifiedCount"])
		}
	})

	t.Run("不正なボディは400を返す", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		id := createTestTask(t, s, token, map[string]any{"title": "元のまま"})

		w := doRequest(t, s, http.MethodPatch, "/tasks/"+id, "[]", token)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestHandleDeleteTask はタスク削除ハンドラを検証する。
func TestHandleDeleteTask(t *testing.T) {
	t.Parallel()

	t.Run("削除後は取得できずdeletedCountが0になる", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})
		id := createTestTask(t, s, token, map[string]any{"title": "消す"})

		w := doRequest(t, s, http.MethodDelete, "/tasks/"+id, nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusOK)
		}
		if resp := decodeJSON[map[string]any](t, w); resp["deletedCount"] != float64(1) {
			t.Errorf("deletedCount = %v; 期待値 = 1", resp["deletedCount"])
		}

		if w := doRequest(t, s, http.MethodGet, "/tasks/"+id, nil, token); w.Code != http.StatusNotFound {
			t.Errorf("削除後の取得のステータスコード = %d; 期待値 = %d", w.Code, http.StatusNotFound)
		}

		w = doRequest(t, s, http.MethodDelete, "/delete-task/"+id, nil, token)
		if resp := decodeJSON[map[string]any](t, w); resp["deletedCount"] != float64(0) {
			t.Errorf("2回目のdeletedCount = %v; 期待値 = 0", resp["deletedCount"])
		}
	})

	t.Run("UUIDでないIDは400を返す", func(t *testing.T) {
		t.Parallel()

		s := setupTestServer(t, config.IssuePolicyOpen)
		token := issueTestToken(t, s, map[string]any{"email": "owner@example.com"})

		w := doRequest(t, s, http.MethodDelete, "/delete-task/64a1f0c2e1b2c3d4e5f60718", nil, token)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコード = %d; 期待値 = %d", w.Code, http.StatusBadRequest)
		}
	})
}
