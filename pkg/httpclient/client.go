package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// defaultTimeout はHTTPクライアントのタイムアウト。
const defaultTimeout = 30 * time.Second

// ErrUnauthorized はサーバーが401を返した場合のエラー。
var ErrUnauthorized = errors.New("認可されていません")

// StatusError は2xx以外のレスポンスを表すエラー。
type StatusError struct {
	// StatusCode はHTTPステータスコード。
	StatusCode int
	// Message はレスポンスボディの message フィールド。無い場合はボディ全体。
	Message string
}

// Error はエラーメッセージを返す。
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTPエラー: status=%d, message=%s", e.StatusCode, e.Message)
}

// Unwrap は401の場合に ErrUnauthorized を返す。
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Document はタスクやユーザーを表すJSONオブジェクト。
type Document map[string]any

// ID はドキュメントの _id を返す。
func (d Document) ID() string {
	id, _ := d["_id"].(string)
	return id
}

// InsertResult は作成系APIのレスポンス。
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
	// Message はユーザーが既に存在する場合に設定される。
	Message string `json:"message,omitempty"`
}

// UpdateResult は部分更新APIのレスポンス。
type UpdateResult struct {
	Acknowledged  bool `json:"acknowledged"`
	MatchedCount  int  `json:"matchedCount"`
	ModifiedCount int  `json:"modifiedCount"`
}

// DeleteResult は削除APIのレスポンス。
type DeleteResult struct {
	Acknowledged bool `json:"acknowledged"`
	DeletedCount int  `json:"deletedCount"`
}

// Client はタスク管理APIのHTTPクライアント。
// 発行済みトークンを保持し、保護されたエンドポイントへのリクエストに付与する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先サーバーのベースURL。
	baseURL string
	// token はAuthorizationヘッダーに付与するトークン。
	token string
}

// Option はClientの設定を変更する関数。
type Option func(*Client)

// WithHTTPClient は内部で使用するHTTPクライアントを差し替える。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken は初期トークンを設定する。
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// New は新しいクライアントを生成する。
// baseURLには接続先サーバーのベースURL（例: "http://localhost:5000"）を指定する。
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token は保持しているトークンを返す。
func (c *Client) Token() string {
	return c.token
}

// IssueToken はペイロードに対するトークンを発行し、以降のリクエストで使用する。
func (c *Client) IssueToken(ctx context.Context, payload map[string]any) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/jwt", payload, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// CreateUser はユーザーを登録する。
// 同じemailのユーザーが存在する場合は Message が設定され InsertedID は空になる。
func (c *Client) CreateUser(ctx context.Context, user Document) (InsertResult, error) {
	var result InsertResult
	err := c.doJSON(ctx, http.MethodPost, "/users", user, &result)
	return result, err
}

// ListUsers はユーザー一覧を取得する。
func (c *Client) ListUsers(ctx context.Context) ([]Document, error) {
	var users []Document
	err := c.doJSON(ctx, http.MethodGet, "/users", nil, &users)
	return users, err
}

// ListTasks はタスク一覧を作成日時の新しい順に取得する。
func (c *Client) ListTasks(ctx context.Context) ([]Document, error) {
	var tasks []Document
	err := c.doJSON(ctx, http.MethodGet, "/tasks", nil, &tasks)
	return tasks, err
}

// SearchTasks はタイトルに q を含むタスクを検索する。
func (c *Client) SearchTasks(ctx context.Context, q string) ([]Document, error) {
	var tasks []Document
	err := c.doJSON(ctx, http.MethodGet, "/tasks/search?q="+url.QueryEscape(q), nil, &tasks)
	return tasks, err
}

// GetTask はタスクを1件取得する。
func (c *Client) GetTask(ctx context.Context, id string) (Document, error) {
	var task Document
	err := c.doJSON(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, &task)
	return task, err
}

// CreateTask はタスクを作成する。
func (c *Client) CreateTask(ctx context.Context, task Document) (InsertResult, error) {
	var result InsertResult
	err := c.doJSON(ctx, http.MethodPost, "/tasks", task, &result)
	return result, err
}

// UpdateTask はタスクのフィールドを部分更新する。
func (c *Client) UpdateTask(ctx context.Context, id string, patch Document) (UpdateResult, error) {
	var result UpdateResult
	err := c.doJSON(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), patch, &result)
	return result, err
}

// DeleteTask はタスクを削除する。
func (c *Client) DeleteTask(ctx context.Context, id string) (DeleteResult, error) {
	var result DeleteResult
	err := c.doJSON(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, &result)
	return result, err
}

// doJSON はJSON形式のHTTPリクエストを実行する共通処理。
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのシリアライズに失敗: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("レスポンスボディのデシリアライズに失敗: %w", err)
		}
	}
	return nil
}

// newStatusError はエラーレスポンスから StatusError を組み立てる。
func newStatusError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var body struct {
		Message string `json:"message"`
	}
	msg := string(respBody)
	if err := json.Unmarshal(respBody, &body); err == nil && body.Message != "" {
		msg = body.Message
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}
