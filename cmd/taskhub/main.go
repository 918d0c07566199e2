// タスク管理APIサービスのエントリポイント。
// トークン発行、ユーザー登録、タスクのCRUDを1プロセスで提供する。
// ACCESS_TOKEN_SECRET が未設定の場合は起動しない。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/taskhub/internal/config"
	"github.com/nao1215/taskhub/internal/taskapi"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("タスク管理サービスの起動に失敗: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server, err := taskapi.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("タスク管理サーバーの初期化に失敗: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			log.Printf("データベースのクローズに失敗: %v", err)
		}
	}()

	log.Printf("タスク管理サービスを起動します: :%s (issue_policy=%s)", cfg.Port, cfg.IssuePolicy)
	if err := server.Run(ctx); err != nil {
		return err
	}
	log.Printf("タスク管理サービスを停止しました")
	return nil
}
