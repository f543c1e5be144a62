// Package repository はデータアクセス層の実装を提供する。
package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"aes128-service/internal/domain"
)

// CipherKeyModel はgorm用のモデル定義。
type CipherKeyModel struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	Keyring    string    `gorm:"type:varchar(64);not null;uniqueIndex:uk_keyring_version;index:idx_keyring_status"`
	Version    uint      `gorm:"not null;uniqueIndex:uk_keyring_version"`
	WrappedKey []byte    `gorm:"type:blob;not null"`
	Status     string    `gorm:"type:enum('active','revoked');not null;default:'active';index:idx_keyring_status"`
	CreatedAt  time.Time `gorm:"type:datetime(6);not null;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"type:datetime(6);not null;autoUpdateTime"`
}

// TableName はテーブル名を返す。
func (CipherKeyModel) TableName() string {
	return "cipher_keys"
}

// BeforeCreate はレコード作成前にUUIDを生成する。
func (m *CipherKeyModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *CipherKeyModel) toDomain() *domain.CipherKeyRecord {
	return &domain.CipherKeyRecord{
		ID:         m.ID,
		Keyring:    m.Keyring,
		Version:    m.Version,
		WrappedKey: m.WrappedKey,
		Status:     domain.KeyStatus(m.Status),
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// logFailure はリポジトリ操作の失敗を記録する。
func logFailure(ctx context.Context, msg, operation string, err error, attrs ...any) {
	args := append([]any{"operation", operation}, attrs...)
	args = append(args, "error", err)
	slog.ErrorContext(ctx, msg, args...)
}

// KeyRepository はcipher_keysテーブルへのアクセスを提供する。
type KeyRepository struct {
	db *gorm.DB
}

// NewKeyRepository は新しいKeyRepositoryを生成する。
func NewKeyRepository(db *gorm.DB) *KeyRepository {
	return &KeyRepository{db: db}
}

// ExistsByKeyring はキーリングに鍵が1つ以上あるか確認する。
func (r *KeyRepository) ExistsByKeyring(ctx context.Context, keyring string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&CipherKeyModel{}).
		Where("keyring = ?", keyring).
		Count(&count).Error
	if err != nil {
		logFailure(ctx, "failed to count keys by keyring", "exists_by_keyring", err, "keyring", keyring)
		return false, err
	}
	return count > 0, nil
}

// Create は新しい鍵を保存し、採番されたIDとタイムスタンプをrecordに反映する。
func (r *KeyRepository) Create(ctx context.Context, record *domain.CipherKeyRecord) error {
	model := &CipherKeyModel{
		ID:         record.ID,
		Keyring:    record.Keyring,
		Version:    record.Version,
		WrappedKey: record.WrappedKey,
		Status:     string(record.Status),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		logFailure(ctx, "failed to create key", "create", err, "keyring", record.Keyring, "version", record.Version)
		return err
	}
	record.ID = model.ID
	record.CreatedAt = model.CreatedAt
	record.UpdatedAt = model.UpdatedAt
	return nil
}

// first はクエリの先頭1件を返す。該当なしの場合は (nil, nil)。
func first(query *gorm.DB) (*domain.CipherKeyRecord, error) {
	var model CipherKeyModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.toDomain(), nil
}

// FindByKeyringAndVersion は指定バージョンの鍵を取得する。存在しなければnilを返す。
func (r *KeyRepository) FindByKeyringAndVersion(ctx context.Context, keyring string, version uint) (*domain.CipherKeyRecord, error) {
	record, err := first(r.db.WithContext(ctx).
		Where("keyring = ? AND version = ?", keyring, version))
	if err != nil {
		logFailure(ctx, "failed to find key", "find_by_keyring_and_version", err, "keyring", keyring, "version", version)
		return nil, err
	}
	return record, nil
}

// FindLatestActiveByKeyring は有効な鍵のうち最大バージョンのものを取得する。
func (r *KeyRepository) FindLatestActiveByKeyring(ctx context.Context, keyring string) (*domain.CipherKeyRecord, error) {
	record, err := first(r.db.WithContext(ctx).
		Where("keyring = ? AND status = ?", keyring, string(domain.KeyStatusActive)).
		Order("version DESC"))
	if err != nil {
		logFailure(ctx, "failed to find latest active key", "find_latest_active_by_keyring", err, "keyring", keyring)
		return nil, err
	}
	return record, nil
}

// FindAllByKeyring はキーリングの全鍵をバージョン昇順で取得する。
func (r *KeyRepository) FindAllByKeyring(ctx context.Context, keyring string) ([]*domain.CipherKeyRecord, error) {
	var models []CipherKeyModel
	err := r.db.WithContext(ctx).
		Where("keyring = ?", keyring).
		Order("version ASC").
		Find(&models).Error
	if err != nil {
		logFailure(ctx, "failed to find keys by keyring", "find_all_by_keyring", err, "keyring", keyring)
		return nil, err
	}

	records := make([]*domain.CipherKeyRecord, len(models))
	for i := range models {
		records[i] = models[i].toDomain()
	}
	return records, nil
}

// GetMaxVersion はキーリングの最大バージョンを返す。鍵がなければ0。
func (r *KeyRepository) GetMaxVersion(ctx context.Context, keyring string) (uint, error) {
	var maxVersion *uint
	err := r.db.WithContext(ctx).
		Model(&CipherKeyModel{}).
		Where("keyring = ?", keyring).
		Select("MAX(version)").
		Scan(&maxVersion).Error
	if err != nil {
		logFailure(ctx, "failed to get max version", "get_max_version", err, "keyring", keyring)
		return 0, err
	}
	if maxVersion == nil {
		return 0, nil
	}
	return *maxVersion, nil
}

// UpdateStatus は鍵のステータスを更新する。
func (r *KeyRepository) UpdateStatus(ctx context.Context, id string, status domain.KeyStatus) error {
	err := r.db.WithContext(ctx).
		Model(&CipherKeyModel{}).
		Where("id = ?", id).
		Update("status", string(status)).Error
	if err != nil {
		logFailure(ctx, "failed to update status", "update_status", err, "id", id, "status", status)
		return err
	}
	return nil
}
