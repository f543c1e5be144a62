package usecase

import (
	"context"

	"aes128-service/internal/aes128"
)

// RoundState はラウンド終了時の状態。Round 0 は初期鍵加算の直後。
type RoundState struct {
	Round int
	State aes128.Block
}

// CipherService は鍵を保存しない単発の暗号処理を提供する。
type CipherService struct{}

// NewCipherService は新しいCipherServiceを生成する。
func NewCipherService() *CipherService {
	return &CipherService{}
}

// Encrypt は与えられた鍵で平文1ブロックを暗号化する。
func (s *CipherService) Encrypt(ctx context.Context, key, plaintext []byte) (_ aes128.Block, err error) {
	_, span := tracer.Start(ctx, "CipherService.Encrypt")
	defer func() { finishSpan(span, err) }()

	return aes128.Encrypt(key, plaintext)
}

// ExpandKey は鍵からラウンド鍵を導出する。
func (s *CipherService) ExpandKey(ctx context.Context, key []byte) (_ aes128.RoundKeySchedule, err error) {
	_, span := tracer.Start(ctx, "CipherService.ExpandKey")
	defer func() { finishSpan(span, err) }()

	return aes128.ExpandKeyBytes(key)
}

// Trace は暗号化を行い、各ラウンド後の状態を順に返す。最後の要素が暗号文。
func (s *CipherService) Trace(ctx context.Context, key, plaintext []byte) (_ []RoundState, err error) {
	_, span := tracer.Start(ctx, "CipherService.Trace")
	defer func() { finishSpan(span, err) }()

	k, err := aes128.NewCipherKey(key)
	if err != nil {
		return nil, err
	}
	pt, err := aes128.NewBlock(plaintext)
	if err != nil {
		return nil, err
	}

	states := make([]RoundState, 0, aes128.Rounds+1)
	schedule := aes128.ExpandKey(k)
	aes128.EncryptBlockObserved(k, schedule, pt, func(round int, state aes128.Block) {
		states = append(states, RoundState{Round: round, State: state})
	})
	return states, nil
}
