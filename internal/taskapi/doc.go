// Package taskapi はタスク管理APIサービスの内部実装を提供する。
//
// トークン発行（POST /jwt）、ユーザー登録、タスクのCRUDと検索を担当する。
// タスクとユーザーはフラットなJSONドキュメントとしてSQLiteに保存する。
// /jwt、POST /users、/、/health 以外のエンドポイントはGateで保護される。
package taskapi
