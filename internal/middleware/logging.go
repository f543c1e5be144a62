// Package middleware はHTTPミドルウェアと監査ログを提供する。
package middleware

import (
	"context"
	"log/slog"
	"time"
)

// 監査ログのresult値。
const (
	ResultSuccess = "SUCCESS"
	ResultFailed  = "FAILED"
)

// WriteAuditLog は鍵操作の監査ログを出力する。鍵や平文の値は含めない。
func WriteAuditLog(ctx context.Context, operation string, keyring string, version uint, result string) {
	slog.InfoContext(ctx, "key operation completed",
		"operation", operation,
		"keyring", keyring,
		"version", version,
		"result", result,
		"timestamp", time.Now().UTC().Format(time.RFC3339),
	)
}
