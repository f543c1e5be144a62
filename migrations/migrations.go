// Package migrations はスキーマ定義のSQLファイルを埋め込む。
package migrations

import (
	"embed"
	"io/fs"
)

// FS は {version}_{name}.sql 形式のMySQL用マイグレーションファイル群。
//
//go:embed *.sql sqlite/*.sql
var FS embed.FS

// SQLite はSQLite用のマイグレーションファイル群を返す。
func SQLite() fs.FS {
	sub, err := fs.Sub(FS, "sqlite")
	if err != nil {
		panic(err)
	}
	return sub
}
