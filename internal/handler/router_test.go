package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aes128-service/config"
)

func newTestRouter(cfg *config.Config) http.Handler {
	kh := setupHandler(&mockKeyRepository{maxVerResult: 1}, &mockKeyWrapper{})
	ch := setupCipherHandler(&mockSelfTestRepository{})
	return NewRouter(kh, ch, cfg)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(&config.Config{OtelServiceName: "test"})

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodPost, "/v1/keyrings/payments/keys", "", http.StatusCreated},
		{http.MethodGet, "/v1/keyrings/payments/keys", "", http.StatusOK},
		{http.MethodPost, "/v1/keyrings/payments/keys/rotate", "", http.StatusCreated},
		{http.MethodDelete, "/v1/keyrings/payments/keys/1", "", http.StatusNotFound},
		{http.MethodDelete, "/v1/keyrings/payments/keys/x", "", http.StatusBadRequest},
		{http.MethodPost, "/v1/keyrings/payments/encrypt", `{"plaintext":"00000000000000000000000000000000"}`, http.StatusNotFound},
		{http.MethodPost, "/v1/cipher/encrypt", `{"key":"80000000000000000000000000000000","plaintext":"00000000000000000000000000000000"}`, http.StatusOK},
		{http.MethodPost, "/v1/cipher/expand", `{"key":"80000000000000000000000000000000"}`, http.StatusOK},
		{http.MethodPost, "/v1/cipher/trace", `{"key":"80000000000000000000000000000000","plaintext":"00000000000000000000000000000000"}`, http.StatusOK},
		{http.MethodGet, "/v1/selftest", "", http.StatusOK},
		{http.MethodPost, "/v1/selftest", "", http.StatusOK},
		{http.MethodGet, "/v1/cipher/encrypt", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("want status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_CipherRoutesAreRateLimited(t *testing.T) {
	router := newTestRouter(&config.Config{OtelServiceName: "test", RateLimitRPS: 0.001, RateLimitBurst: 1})

	body := `{"key":"80000000000000000000000000000000"}`
	codes := make([]int, 2)
	for i := range codes {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cipher/expand", strings.NewReader(body)))
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("want [200 429], got %v", codes)
	}

	// キーリングAPIは制限対象外
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/keyrings/payments/keys", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("want status 200, got %d", rec.Code)
	}
}
