package taskapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/taskhub/internal/config"
	taskdb "github.com/nao1215/taskhub/internal/taskapi/db"
	"github.com/nao1215/taskhub/pkg/middleware"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 10 * time.Second

// Server はタスク管理APIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はタスクとユーザーのクエリ実行オブジェクト。
	queries *taskdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// issuer はトークンを発行する。
	issuer *middleware.Issuer
	// gate は保護されたエンドポイントの前段でトークンを検証する。
	gate *middleware.Gate
	// issuePolicy はPOST /jwtの発行方針。
	issuePolicy config.IssuePolicy
	// now はドキュメントの作成日時に使う現在時刻。
	now func() time.Time
}

// NewServer は新しいタスク管理サーバーを生成する。
// SQLiteデータベースの初期化とマイグレーションを行う。
func NewServer(cfg *config.Config) (*Server, error) {
	tokenCfg := middleware.TokenConfig{
		Secret: []byte(cfg.AccessTokenSecret),
		TTL:    cfg.TokenTTL,
	}
	issuer, err := middleware.NewIssuer(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("トークン発行の初期化に失敗: %w", err)
	}
	gate, err := middleware.NewGate(tokenCfg)
	if err != nil {
		return nil, fmt.Errorf("トークン検証の初期化に失敗: %w", err)
	}

	sqlDB, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := initSchema(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	s := &Server{
		router:      router,
		port:        cfg.Port,
		queries:     taskdb.New(sqlDB),
		db:          sqlDB,
		issuer:      issuer,
		gate:        gate,
		issuePolicy: cfg.IssuePolicy,
		now:         time.Now,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗: %w", err)
	}
	return nil
}

// Close はデータベース接続をクローズする。
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// 稼働確認
	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Task Management App running...")
	})
	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "taskhub"})
	})

	// トークン発行（認証不要、発行方針に従う）
	s.router.POST("/jwt", s.handleIssueToken())
	// ユーザー登録（認証不要）
	s.router.POST("/users", s.handleCreateUser())

	// 認証必須のエンドポイント
	api := s.router.Group("")
	api.Use(s.gate.Handler())
	{
		// ユーザー一覧取得
		api.GET("/users", s.handleListUsers())

		tasks := api.Group("/tasks")
		{
			// タスク一覧取得
			tasks.GET("", s.handleListTasks())
			// タスク検索
			tasks.GET("/search", s.handleSearchTasks())
			// タスク詳細取得
			tasks.GET("/:id", s.handleGetTask())
			// タスク作成
			tasks.POST("", s.handleCreateTask())
			// タスク部分更新
			tasks.PATCH("/:id", s.handleUpdateTask())
			// タスク削除
			tasks.DELETE("/:id", s.handleDeleteTask())
		}

		// 旧クライアント互換
		api.POST("/add-task", s.handleCreateTask())
		api.DELETE("/delete-task/:id", s.handleDeleteTask())
	}
}

// respondError はエラーレスポンスを返す。
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": true, "message": message})
}
