package db

// Task はtasksテーブルの1行。
type Task struct {
	// ID はタスクの一意識別子（UUID）。
	ID string
	// Document はタスク本体のJSONオブジェクト。
	Document string
	// CreatedAt は作成日時（Unixミリ秒）。
	CreatedAt int64
}

// User はusersテーブルの1行。
type User struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string
	// Email はユーザーのメールアドレス。重複しない。
	Email string
	// Document はユーザー本体のJSONオブジェクト。
	Document string
	// CreatedAt は作成日時（Unixミリ秒）。
	CreatedAt int64
}
