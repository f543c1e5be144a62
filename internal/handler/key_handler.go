// Package handler はHTTPハンドラを提供する。
package handler

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aes128-service/internal/aes128"
	"aes128-service/internal/domain"
	"aes128-service/internal/middleware"
	"aes128-service/internal/usecase"
	"aes128-service/pkg/httputil"
)

var keyringRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// KeyHandler はキーリングAPIのHTTPハンドラを提供する。
type KeyHandler struct {
	service *usecase.KeyService
}

// NewKeyHandler は新しいKeyHandlerを生成する。
func NewKeyHandler(service *usecase.KeyService) *KeyHandler {
	return &KeyHandler{service: service}
}

func validateKeyring(keyring string) error {
	if keyring == "" || len(keyring) > 64 {
		return domain.ErrInvalidKeyring
	}
	if !keyringRegex.MatchString(keyring) {
		return domain.ErrInvalidKeyring
	}
	return nil
}

func validateVersion(s string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v < 1 {
		return 0, domain.ErrInvalidVersion
	}
	return uint(v), nil
}

// decodeHex は16進文字列のフィールドをデコードする。
func decodeHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be hex encoded", field)
	}
	return b, nil
}

// writeServiceError はユースケースのエラーをHTTPレスポンスに変換する。
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aes128.ErrInvalidLength):
		httputil.Error(w, http.StatusBadRequest, "INVALID_LENGTH", err.Error())
	case errors.Is(err, domain.ErrKeyNotFound):
		httputil.Error(w, http.StatusNotFound, "KEY_NOT_FOUND", "key not found for this keyring")
	case errors.Is(err, domain.ErrKeyAlreadyExists):
		httputil.Error(w, http.StatusConflict, "KEY_ALREADY_EXISTS", "key already exists for this keyring")
	case errors.Is(err, domain.ErrKeyRevoked):
		httputil.Error(w, http.StatusGone, "KEY_REVOKED", "key has been revoked")
	case errors.Is(err, domain.ErrKeyAlreadyRevoked):
		httputil.Error(w, http.StatusConflict, "KEY_ALREADY_REVOKED", "key is already revoked")
	case errors.Is(err, domain.ErrSelfTestFailed):
		httputil.Error(w, http.StatusInternalServerError, "SELFTEST_FAILED", err.Error())
	default:
		httputil.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// KeyMetadataResponse は鍵メタデータのレスポンス形式。
type KeyMetadataResponse struct {
	Keyring   string `json:"keyring"`
	Version   uint   `json:"version"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// KeyListResponse は鍵一覧のレスポンス形式。
type KeyListResponse struct {
	Keys []KeyMetadataResponse `json:"keys"`
}

// CreateKeyRequest は鍵登録のリクエスト形式。Keyを省略するとランダムに生成する。
type CreateKeyRequest struct {
	Key string `json:"key,omitempty"`
}

// EncryptRequest はキーリング暗号化のリクエスト形式。Versionを省略すると最新の鍵を使う。
type EncryptRequest struct {
	Plaintext string `json:"plaintext"`
	Version   uint   `json:"version,omitempty"`
}

// EncryptResponse はキーリング暗号化のレスポンス形式。
type EncryptResponse struct {
	Keyring    string `json:"keyring"`
	Version    uint   `json:"version"`
	Ciphertext string `json:"ciphertext"`
}

func toMetadataResponse(k *domain.KeyVersion) KeyMetadataResponse {
	return KeyMetadataResponse{
		Keyring:   k.Keyring,
		Version:   k.Version,
		Status:    string(k.Status),
		CreatedAt: k.CreatedAt.Format(time.RFC3339),
	}
}

// CreateKey はキーリングに最初の鍵を登録する。
func (h *KeyHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	keyring := chi.URLParam(r, "keyring")
	if err := validateKeyring(keyring); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEYRING", "invalid keyring format")
		return
	}

	var req CreateKeyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	var material []byte
	if req.Key != "" {
		var err error
		if material, err = decodeHex("key", req.Key); err != nil {
			httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}

	metadata, err := h.service.CreateKey(r.Context(), keyring, material)
	clear(material)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "CREATE_KEY", keyring, 0, middleware.ResultFailed)
		writeServiceError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "CREATE_KEY", keyring, metadata.Version, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusCreated, toMetadataResponse(metadata))
}

// RotateKey は新しいバージョンの鍵を追加する。
func (h *KeyHandler) RotateKey(w http.ResponseWriter, r *http.Request) {
	keyring := chi.URLParam(r, "keyring")
	if err := validateKeyring(keyring); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEYRING", "invalid keyring format")
		return
	}

	metadata, err := h.service.RotateKey(r.Context(), keyring)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "ROTATE_KEY", keyring, 0, middleware.ResultFailed)
		writeServiceError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "ROTATE_KEY", keyring, metadata.Version, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusCreated, toMetadataResponse(metadata))
}

// ListKeys は鍵一覧を取得する。
func (h *KeyHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keyring := chi.URLParam(r, "keyring")
	if err := validateKeyring(keyring); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEYRING", "invalid keyring format")
		return
	}

	keys, err := h.service.ListKeys(r.Context(), keyring)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "LIST_KEYS", keyring, 0, middleware.ResultFailed)
		writeServiceError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "LIST_KEYS", keyring, 0, middleware.ResultSuccess)
	response := KeyListResponse{
		Keys: make([]KeyMetadataResponse, len(keys)),
	}
	for i, k := range keys {
		response.Keys[i] = toMetadataResponse(k)
	}
	httputil.JSON(w, http.StatusOK, response)
}

// RevokeKey は指定バージョンの鍵を失効させる。
func (h *KeyHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	keyring := chi.URLParam(r, "keyring")
	if err := validateKeyring(keyring); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEYRING", "invalid keyring format")
		return
	}

	version, err := validateVersion(chi.URLParam(r, "version"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_VERSION", "invalid version number")
		return
	}

	if err := h.service.RevokeKey(r.Context(), keyring, version); err != nil {
		middleware.WriteAuditLog(r.Context(), "REVOKE_KEY", keyring, version, middleware.ResultFailed)
		writeServiceError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "REVOKE_KEY", keyring, version, middleware.ResultSuccess)
	w.WriteHeader(http.StatusAccepted)
}

// Encrypt はキーリングの鍵で平文1ブロックを暗号化する。
func (h *KeyHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	keyring := chi.URLParam(r, "keyring")
	if err := validateKeyring(keyring); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_KEYRING", "invalid keyring format")
		return
	}

	var req EncryptRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	plaintext, err := decodeHex("plaintext", req.Plaintext)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	ct, err := h.service.EncryptBlock(r.Context(), keyring, req.Version, plaintext)
	if err != nil {
		middleware.WriteAuditLog(r.Context(), "ENCRYPT_BLOCK", keyring, req.Version, middleware.ResultFailed)
		writeServiceError(w, err)
		return
	}

	middleware.WriteAuditLog(r.Context(), "ENCRYPT_BLOCK", keyring, ct.Version, middleware.ResultSuccess)
	httputil.JSON(w, http.StatusOK, EncryptResponse{
		Keyring:    ct.Keyring,
		Version:    ct.Version,
		Ciphertext: ct.Ciphertext.String(),
	})
}
