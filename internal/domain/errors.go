package domain

import "errors"

var (
	// ErrKeyNotFound は指定されたキーリング・バージョンの鍵が存在しない場合のエラー。
	ErrKeyNotFound = errors.New("key not found")

	// ErrKeyAlreadyExists は指定されたキーリングに既に鍵が存在する場合のエラー。
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrKeyRevoked は指定された鍵が失効している場合のエラー。
	ErrKeyRevoked = errors.New("key is revoked")

	// ErrKeyAlreadyRevoked は指定された鍵が既に失効している場合のエラー。
	ErrKeyAlreadyRevoked = errors.New("key is already revoked")

	// ErrInvalidKeyring はキーリング名の形式が不正な場合のエラー。
	ErrInvalidKeyring = errors.New("invalid keyring")

	// ErrInvalidVersion はバージョン番号が不正な場合のエラー。
	ErrInvalidVersion = errors.New("invalid version")

	// ErrSelfTestFailed は既知解テストが期待値と一致しなかった場合のエラー。
	ErrSelfTestFailed = errors.New("self test failed")

	// ErrMigrationFailed はマイグレーション実行時のエラー。
	ErrMigrationFailed = errors.New("migration failed")

	// ErrInvalidMigrationFile はマイグレーションファイルのフォーマットが不正な場合のエラー。
	ErrInvalidMigrationFile = errors.New("invalid migration file")
)
