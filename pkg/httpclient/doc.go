// Package httpclient はタスク管理APIを呼び出すクライアントを提供する。
//
// POST /jwt で発行したトークンを保持し、保護されたエンドポイントへの
// リクエストに Bearer トークンとして付与する。
package httpclient
