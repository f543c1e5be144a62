package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aes128-service/internal/domain"
	"aes128-service/internal/usecase"
)

// mockSelfTestRepository はテスト用のモック。
type mockSelfTestRepository struct {
	created      []*domain.SelfTestRun
	createErr    error
	latestResult []*domain.SelfTestRun
	latestErr    error
}

func (m *mockSelfTestRepository) Create(ctx context.Context, run *domain.SelfTestRun) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, run)
	return nil
}

func (m *mockSelfTestRepository) FindLatest(ctx context.Context) ([]*domain.SelfTestRun, error) {
	return m.latestResult, m.latestErr
}

func setupCipherHandler(repo *mockSelfTestRepository) *CipherHandler {
	return NewCipherHandler(usecase.NewCipherService(), usecase.NewSelfTestService(repo))
}

func TestCipherEncrypt(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       string
	}{
		{"kung fu", `{"key":"5468617473206d79204b756e67204675","plaintext":"54776f204f6e65204e696e652054776f"}`, http.StatusOK, "29c3505f571420f6402299b31a02d73a"},
		{"single bit key", `{"key":"80000000000000000000000000000000","plaintext":"00000000000000000000000000000000"}`, http.StatusOK, "0edd33d3c621e546455bd8ba1418bec8"},
		{"short key", `{"key":"8000","plaintext":"00000000000000000000000000000000"}`, http.StatusBadRequest, "INVALID_LENGTH"},
		{"long plaintext", `{"key":"80000000000000000000000000000000","plaintext":"` + strings.Repeat("00", 17) + `"}`, http.StatusBadRequest, "INVALID_LENGTH"},
		{"non-hex key", `{"key":"not hex","plaintext":"00"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown field", `{"key":"00","iv":"00"}`, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := setupCipherHandler(&mockSelfTestRepository{})

			req := httptest.NewRequest(http.MethodPost, "/v1/cipher/encrypt", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Encrypt(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("want status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			resp := decodeBody(t, rec)
			if tt.wantStatus == http.StatusOK {
				if resp["ciphertext"] != tt.want {
					t.Errorf("want ciphertext %s, got %v", tt.want, resp["ciphertext"])
				}
			} else if resp["code"] != tt.want {
				t.Errorf("want code %s, got %v", tt.want, resp["code"])
			}
		})
	}
}

func TestCipherExpandKey(t *testing.T) {
	h := setupCipherHandler(&mockSelfTestRepository{})

	req := httptest.NewRequest(http.MethodPost, "/v1/cipher/expand", strings.NewReader(`{"key":"2b7e151628aed2a6abf7158809cf4f3c"}`))
	rec := httptest.NewRecorder()
	h.ExpandKey(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}

	var resp RoundKeysResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(resp.RoundKeys) != 10 {
		t.Fatalf("want 10 round keys, got %d", len(resp.RoundKeys))
	}
	if resp.RoundKeys[0] != "a0fafe1788542cb123a339392a6c7605" {
		t.Errorf("unexpected first round key %s", resp.RoundKeys[0])
	}
	if resp.RoundKeys[9] != "d014f9a8c9ee2589e13f0cc8b6630ca6" {
		t.Errorf("unexpected last round key %s", resp.RoundKeys[9])
	}
}

func TestCipherExpandKey_InvalidLength(t *testing.T) {
	h := setupCipherHandler(&mockSelfTestRepository{})

	req := httptest.NewRequest(http.MethodPost, "/v1/cipher/expand", strings.NewReader(`{"key":""}`))
	rec := httptest.NewRecorder()
	h.ExpandKey(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want status 400, got %d", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["code"] != "INVALID_LENGTH" {
		t.Errorf("want code INVALID_LENGTH, got %v", resp["code"])
	}
}

func TestCipherTrace(t *testing.T) {
	h := setupCipherHandler(&mockSelfTestRepository{})

	body := `{"key":"5468617473206d79204b756e67204675","plaintext":"54776f204f6e65204e696e652054776f"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/cipher/trace", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Trace(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}

	var resp TraceResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(resp.Rounds) != 11 {
		t.Fatalf("want 11 rounds, got %d", len(resp.Rounds))
	}
	if resp.Rounds[0].Round != 0 || resp.Rounds[0].State != "001f0e543c4e08596e221b0b4774311a" {
		t.Errorf("unexpected initial state %+v", resp.Rounds[0])
	}
	if resp.Ciphertext != "29c3505f571420f6402299b31a02d73a" {
		t.Errorf("unexpected ciphertext %s", resp.Ciphertext)
	}
}

func TestRunSelfTest(t *testing.T) {
	repo := &mockSelfTestRepository{}
	h := setupCipherHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/v1/selftest", nil)
	rec := httptest.NewRecorder()
	h.RunSelfTest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}

	var resp SelfTestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if !resp.Passed {
		t.Error("want self test to pass")
	}
	if len(resp.Runs) != len(repo.created) || len(resp.Runs) == 0 {
		t.Errorf("want %d runs, got %d", len(repo.created), len(resp.Runs))
	}
}

func TestRunSelfTest_RepositoryError(t *testing.T) {
	h := setupCipherHandler(&mockSelfTestRepository{createErr: errors.New("disk full")})

	req := httptest.NewRequest(http.MethodPost, "/v1/selftest", nil)
	rec := httptest.NewRecorder()
	h.RunSelfTest(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want status 500, got %d", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["code"] != "INTERNAL_ERROR" {
		t.Errorf("want code INTERNAL_ERROR, got %v", resp["code"])
	}
}

func TestLatestSelfTest(t *testing.T) {
	ranAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := &mockSelfTestRepository{
		latestResult: []*domain.SelfTestRun{
			{Vector: "kung-fu", Passed: true, Expected: "29c3", Actual: "29c3", RanAt: ranAt},
			{Vector: "single-bit-key", Passed: false, Expected: "0edd", Actual: "ffff", RanAt: ranAt},
		},
	}
	h := setupCipherHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/v1/selftest", nil)
	rec := httptest.NewRecorder()
	h.LatestSelfTest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("want status 200, got %d", rec.Code)
	}

	var resp SelfTestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Passed {
		t.Error("want passed=false when any vector failed")
	}
	if resp.Runs[0].RanAt != "2024-05-01T12:00:00Z" {
		t.Errorf("unexpected ran_at %s", resp.Runs[0].RanAt)
	}
}

func TestLatestSelfTest_NoRuns(t *testing.T) {
	h := setupCipherHandler(&mockSelfTestRepository{})

	req := httptest.NewRequest(http.MethodGet, "/v1/selftest", nil)
	rec := httptest.NewRecorder()
	h.LatestSelfTest(rec, req)

	var resp SelfTestResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Passed || len(resp.Runs) != 0 {
		t.Errorf("want no passing runs, got %+v", resp)
	}
}
