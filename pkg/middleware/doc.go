// Package middleware はタスク管理APIで使用する認証とGinミドルウェアを提供する。
//
// トークンの発行（Issuer）と検証（Gate）、パニックリカバリ、CORS設定を含む。
// IssuerとGateは同じTokenConfigから構築し、シークレットを環境変数から直接読まない。
package middleware
