// Package domain はドメインモデルとビジネスルールを定義する。
package domain

import (
	"time"

	"aes128-service/internal/aes128"
)

// KeyStatus は暗号鍵のステータスを表す。
type KeyStatus string

const (
	// KeyStatusActive は暗号化に使える鍵を表す。
	KeyStatusActive KeyStatus = "active"
	// KeyStatusRevoked は失効した鍵を表す。
	KeyStatusRevoked KeyStatus = "revoked"
)

// CipherKeyRecord はキーリングに保存されるAES-128鍵のエンティティ。
// 鍵本体はKMSでラップされた状態でのみ保持する。
type CipherKeyRecord struct {
	ID         string
	Keyring    string
	Version    uint
	WrappedKey []byte
	Status     KeyStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// KeyVersion は鍵のメタデータ（鍵本体を含まない）。
type KeyVersion struct {
	Keyring   string
	Version   uint
	Status    KeyStatus
	CreatedAt time.Time
}

// Metadata はレコードからメタデータを取り出す。
func (r *CipherKeyRecord) Metadata() *KeyVersion {
	return &KeyVersion{
		Keyring:   r.Keyring,
		Version:   r.Version,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

// BlockCiphertext はキーリングの鍵で暗号化した1ブロック。
type BlockCiphertext struct {
	Keyring    string
	Version    uint
	Ciphertext aes128.Block
}
