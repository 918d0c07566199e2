package taskapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// サーバーが管理するドキュメントのフィールド名。
const (
	fieldID        = "_id"
	fieldCreatedAt = "createdAt"
)

// createdAtLayout はcreatedAtの出力形式（UTC、ミリ秒精度）。
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// errNotObject はリクエストボディがJSONオブジェクトでない場合のエラー。
var errNotObject = errors.New("リクエストボディがJSONオブジェクトではありません")

// bindDocument はリクエストボディをJSONオブジェクトとして読み込む。
// サーバーが管理する _id と createdAt は取り除く。
func bindDocument(c *gin.Context) (map[string]any, error) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errNotObject
	}
	delete(doc, fieldID)
	delete(doc, fieldCreatedAt)
	return doc, nil
}

// encodeDocument はドキュメントを保存用のJSON文字列に変換する。
func encodeDocument(doc map[string]any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("ドキュメントのシリアライズに失敗: %w", err)
	}
	return string(data), nil
}

// decodeDocument は保存されたJSON文字列をドキュメントに戻す。
func decodeDocument(raw string) (map[string]any, error) {
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("ドキュメントのデシリアライズに失敗: %w", err)
	}
	return doc, nil
}

// documentResponse は保存されたドキュメントに _id と createdAt を加えたレスポンスを作る。
func documentResponse(id, raw string, createdAtMillis int64) (map[string]any, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	doc[fieldID] = id
	doc[fieldCreatedAt] = formatCreatedAt(createdAtMillis)
	return doc, nil
}

// formatCreatedAt はUnixミリ秒をcreatedAtの出力形式に変換する。
func formatCreatedAt(millis int64) string {
	return time.UnixMilli(millis).UTC().Format(createdAtLayout)
}
