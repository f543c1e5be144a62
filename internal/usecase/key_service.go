package usecase

import (
	"context"
	"crypto/rand"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aes128-service/internal/aes128"
	"aes128-service/internal/domain"
)

// KeyRepository はデータアクセスのインターフェース。
type KeyRepository interface {
	ExistsByKeyring(ctx context.Context, keyring string) (bool, error)
	Create(ctx context.Context, record *domain.CipherKeyRecord) error
	FindByKeyringAndVersion(ctx context.Context, keyring string, version uint) (*domain.CipherKeyRecord, error)
	FindLatestActiveByKeyring(ctx context.Context, keyring string) (*domain.CipherKeyRecord, error)
	FindAllByKeyring(ctx context.Context, keyring string) ([]*domain.CipherKeyRecord, error)
	GetMaxVersion(ctx context.Context, keyring string) (uint, error)
	UpdateStatus(ctx context.Context, id string, status domain.KeyStatus) error
}

// KeyWrapper は鍵のラップ/アンラップのインターフェース。
type KeyWrapper interface {
	Wrap(ctx context.Context, key, aad []byte) ([]byte, error)
	Unwrap(ctx context.Context, wrapped, aad []byte) ([]byte, error)
}

// KeyService はキーリングに保存したAES-128鍵の管理と、その鍵によるブロック暗号化を提供する。
type KeyService struct {
	repo    KeyRepository
	wrapper KeyWrapper
}

// NewKeyService は新しいKeyServiceを生成する。
func NewKeyService(repo KeyRepository, wrapper KeyWrapper) *KeyService {
	return &KeyService{
		repo:    repo,
		wrapper: wrapper,
	}
}

// generateCipherKey はランダムなAES-128鍵を生成する。
func generateCipherKey() (aes128.CipherKey, error) {
	var key aes128.CipherKey
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("generating random key: %w", err)
	}
	return key, nil
}

// storeVersion は鍵をラップして指定バージョンとして保存する。
func (s *KeyService) storeVersion(ctx context.Context, keyring string, version uint, key aes128.CipherKey) (*domain.KeyVersion, error) {
	wrapped, err := s.wrapper.Wrap(ctx, key[:], []byte(keyring))
	if err != nil {
		return nil, fmt.Errorf("wrapping key: %w", err)
	}

	record := &domain.CipherKeyRecord{
		Keyring:    keyring,
		Version:    version,
		WrappedKey: wrapped,
		Status:     domain.KeyStatusActive,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("creating key: %w", err)
	}
	return record.Metadata(), nil
}

// CreateKey はキーリングに最初の鍵（バージョン1）を登録する。
// materialがnilならランダムに生成し、そうでなければ16バイトの鍵として取り込む。
func (s *KeyService) CreateKey(ctx context.Context, keyring string, material []byte) (_ *domain.KeyVersion, err error) {
	ctx, span := tracer.Start(ctx, "KeyService.CreateKey", trace.WithAttributes(attribute.String("keyring", keyring)))
	defer func() { finishSpan(span, err) }()

	var key aes128.CipherKey
	if material != nil {
		if key, err = aes128.NewCipherKey(material); err != nil {
			return nil, err
		}
	} else if key, err = generateCipherKey(); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByKeyring(ctx, keyring)
	if err != nil {
		return nil, fmt.Errorf("checking existing key: %w", err)
	}
	if exists {
		return nil, domain.ErrKeyAlreadyExists
	}

	return s.storeVersion(ctx, keyring, 1, key)
}

// RotateKey はランダムな鍵を次のバージョンとして追加する。
func (s *KeyService) RotateKey(ctx context.Context, keyring string) (_ *domain.KeyVersion, err error) {
	ctx, span := tracer.Start(ctx, "KeyService.RotateKey", trace.WithAttributes(attribute.String("keyring", keyring)))
	defer func() { finishSpan(span, err) }()

	maxVersion, err := s.repo.GetMaxVersion(ctx, keyring)
	if err != nil {
		return nil, fmt.Errorf("getting max version: %w", err)
	}
	if maxVersion == 0 {
		return nil, domain.ErrKeyNotFound
	}

	key, err := generateCipherKey()
	if err != nil {
		return nil, err
	}
	return s.storeVersion(ctx, keyring, maxVersion+1, key)
}

// ListKeys はキーリングの全バージョンのメタデータを返す。
func (s *KeyService) ListKeys(ctx context.Context, keyring string) ([]*domain.KeyVersion, error) {
	records, err := s.repo.FindAllByKeyring(ctx, keyring)
	if err != nil {
		return nil, fmt.Errorf("finding keys: %w", err)
	}

	versions := make([]*domain.KeyVersion, len(records))
	for i, r := range records {
		versions[i] = r.Metadata()
	}
	return versions, nil
}

// RevokeKey は指定バージョンの鍵を失効させる。
func (s *KeyService) RevokeKey(ctx context.Context, keyring string, version uint) (err error) {
	ctx, span := tracer.Start(ctx, "KeyService.RevokeKey", trace.WithAttributes(
		attribute.String("keyring", keyring),
		attribute.Int("version", int(version)),
	))
	defer func() { finishSpan(span, err) }()

	record, err := s.repo.FindByKeyringAndVersion(ctx, keyring, version)
	if err != nil {
		return fmt.Errorf("finding key: %w", err)
	}
	if record == nil {
		return domain.ErrKeyNotFound
	}
	if record.Status == domain.KeyStatusRevoked {
		return domain.ErrKeyAlreadyRevoked
	}

	if err := s.repo.UpdateStatus(ctx, record.ID, domain.KeyStatusRevoked); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return nil
}

// findUsable は暗号化に使う鍵を探す。version 0 は最新の有効な鍵を意味する。
func (s *KeyService) findUsable(ctx context.Context, keyring string, version uint) (*domain.CipherKeyRecord, error) {
	if version == 0 {
		record, err := s.repo.FindLatestActiveByKeyring(ctx, keyring)
		if err != nil {
			return nil, fmt.Errorf("finding current key: %w", err)
		}
		if record == nil {
			return nil, domain.ErrKeyNotFound
		}
		return record, nil
	}

	record, err := s.repo.FindByKeyringAndVersion(ctx, keyring, version)
	if err != nil {
		return nil, fmt.Errorf("finding key: %w", err)
	}
	if record == nil {
		return nil, domain.ErrKeyNotFound
	}
	if record.Status == domain.KeyStatusRevoked {
		return nil, domain.ErrKeyRevoked
	}
	return record, nil
}

// EncryptBlock はキーリングの鍵で平文1ブロックを暗号化する。
func (s *KeyService) EncryptBlock(ctx context.Context, keyring string, version uint, plaintext []byte) (_ *domain.BlockCiphertext, err error) {
	ctx, span := tracer.Start(ctx, "KeyService.EncryptBlock", trace.WithAttributes(
		attribute.String("keyring", keyring),
		attribute.Int("version", int(version)),
	))
	defer func() { finishSpan(span, err) }()

	block, err := aes128.NewBlock(plaintext)
	if err != nil {
		return nil, err
	}

	record, err := s.findUsable(ctx, keyring, version)
	if err != nil {
		return nil, err
	}

	raw, err := s.wrapper.Unwrap(ctx, record.WrappedKey, []byte(keyring))
	if err != nil {
		return nil, fmt.Errorf("version %d: %w", record.Version, err)
	}
	key, err := aes128.NewCipherKey(raw)
	clear(raw)
	if err != nil {
		return nil, fmt.Errorf("unwrapped key of version %d: %w", record.Version, err)
	}

	schedule := aes128.ExpandKey(key)
	return &domain.BlockCiphertext{
		Keyring:    record.Keyring,
		Version:    record.Version,
		Ciphertext: aes128.EncryptBlock(key, schedule, block),
	}, nil
}
