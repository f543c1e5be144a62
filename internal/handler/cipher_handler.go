package handler

import (
	"errors"
	"net/http"
	"time"

	"aes128-service/internal/domain"
	"aes128-service/internal/usecase"
	"aes128-service/pkg/httputil"
)

// CipherHandler は鍵を保存しない暗号APIと自己診断APIのHTTPハンドラを提供する。
type CipherHandler struct {
	cipher   *usecase.CipherService
	selfTest *usecase.SelfTestService
}

// NewCipherHandler は新しいCipherHandlerを生成する。
func NewCipherHandler(cipher *usecase.CipherService, selfTest *usecase.SelfTestService) *CipherHandler {
	return &CipherHandler{
		cipher:   cipher,
		selfTest: selfTest,
	}
}

// CipherRequest は単発暗号APIのリクエスト形式。値は16進文字列。
type CipherRequest struct {
	Key       string `json:"key"`
	Plaintext string `json:"plaintext,omitempty"`
}

// CiphertextResponse は暗号文のレスポンス形式。
type CiphertextResponse struct {
	Ciphertext string `json:"ciphertext"`
}

// RoundKeysResponse はラウンド鍵のレスポンス形式。
type RoundKeysResponse struct {
	RoundKeys []string `json:"round_keys"`
}

// RoundStateResponse はラウンドごとの状態。
type RoundStateResponse struct {
	Round int    `json:"round"`
	State string `json:"state"`
}

// TraceResponse はラウンドトレースのレスポンス形式。
type TraceResponse struct {
	Rounds     []RoundStateResponse `json:"rounds"`
	Ciphertext string               `json:"ciphertext"`
}

// SelfTestRunResponse は既知解テスト結果のレスポンス形式。
type SelfTestRunResponse struct {
	Vector   string `json:"vector"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	RanAt    string `json:"ran_at"`
}

// SelfTestResponse は自己診断のレスポンス形式。
type SelfTestResponse struct {
	Passed bool                  `json:"passed"`
	Runs   []SelfTestRunResponse `json:"runs"`
}

// decodeCipherRequest はリクエストを読み、鍵と(必要なら)平文をデコードする。
func decodeCipherRequest(w http.ResponseWriter, r *http.Request, withPlaintext bool) (key, plaintext []byte, ok bool) {
	var req CipherRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return nil, nil, false
	}

	key, err := decodeHex("key", req.Key)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, nil, false
	}
	if !withPlaintext {
		return key, nil, true
	}
	plaintext, err = decodeHex("plaintext", req.Plaintext)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return nil, nil, false
	}
	return key, plaintext, true
}

// Encrypt は与えられた鍵で1ブロックを暗号化する。
func (h *CipherHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	key, plaintext, ok := decodeCipherRequest(w, r, true)
	if !ok {
		return
	}

	ct, err := h.cipher.Encrypt(r.Context(), key, plaintext)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, CiphertextResponse{Ciphertext: ct.String()})
}

// ExpandKey はラウンド鍵1〜10を返す。
func (h *CipherHandler) ExpandKey(w http.ResponseWriter, r *http.Request) {
	key, _, ok := decodeCipherRequest(w, r, false)
	if !ok {
		return
	}

	schedule, err := h.cipher.ExpandKey(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, RoundKeysResponse{RoundKeys: schedule.Strings()})
}

// Trace は各ラウンド後の状態を返す。
func (h *CipherHandler) Trace(w http.ResponseWriter, r *http.Request) {
	key, plaintext, ok := decodeCipherRequest(w, r, true)
	if !ok {
		return
	}

	states, err := h.cipher.Trace(r.Context(), key, plaintext)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := TraceResponse{Rounds: make([]RoundStateResponse, len(states))}
	for i, s := range states {
		resp.Rounds[i] = RoundStateResponse{Round: s.Round, State: s.State.String()}
	}
	resp.Ciphertext = resp.Rounds[len(resp.Rounds)-1].State
	httputil.JSON(w, http.StatusOK, resp)
}

func toSelfTestResponse(runs []*domain.SelfTestRun) SelfTestResponse {
	resp := SelfTestResponse{
		Passed: len(runs) > 0,
		Runs:   make([]SelfTestRunResponse, len(runs)),
	}
	for i, run := range runs {
		resp.Runs[i] = SelfTestRunResponse{
			Vector:   run.Vector,
			Passed:   run.Passed,
			Expected: run.Expected,
			Actual:   run.Actual,
			RanAt:    run.RanAt.Format(time.RFC3339),
		}
		resp.Passed = resp.Passed && run.Passed
	}
	return resp
}

// LatestSelfTest はベクタごとの最新の自己診断結果を返す。
func (h *CipherHandler) LatestSelfTest(w http.ResponseWriter, r *http.Request) {
	runs, err := h.selfTest.Latest(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toSelfTestResponse(runs))
}

// RunSelfTest は自己診断を再実行する。不一致があれば500で結果を返す。
func (h *CipherHandler) RunSelfTest(w http.ResponseWriter, r *http.Request) {
	runs, err := h.selfTest.Run(r.Context())
	if errors.Is(err, domain.ErrSelfTestFailed) {
		httputil.JSON(w, http.StatusInternalServerError, toSelfTestResponse(runs))
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, toSelfTestResponse(runs))
}
