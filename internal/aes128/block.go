// Package aes128 はAES-128の鍵拡張と単一ブロック暗号化を提供する。
package aes128

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// BlockSize はブロック長（バイト）。
	BlockSize = 16
	// KeySize は暗号鍵長（バイト）。
	KeySize = 16
	// Rounds はAES-128のラウンド数。
	Rounds = 10
)

// ErrInvalidLength は鍵またはブロックの長さが16バイトでない場合のエラー。
var ErrInvalidLength = errors.New("invalid length")

// CipherKey は128ビットの暗号鍵。
type CipherKey [KeySize]byte

// Block は16バイトのブロック。平文・中間状態・暗号文のいずれかを表す。
//
// 4x4のバイト行列として列優先で並ぶ。インデックス i は行 i%4、列 i/4 に対応する。
type Block [BlockSize]byte

// RoundKeySchedule はラウンド1〜10で使うラウンド鍵。
// 添字 r はラウンド r+1 の鍵で、元の暗号鍵は含まない。
type RoundKeySchedule [Rounds]Block

// NewCipherKey はバイト列から暗号鍵を生成する。長さが16バイトでなければエラーを返す。
func NewCipherKey(b []byte) (CipherKey, error) {
	var k CipherKey
	if len(b) != KeySize {
		return k, fmt.Errorf("%w: cipher key must be %d bytes, got %d", ErrInvalidLength, KeySize, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// NewBlock はバイト列からブロックを生成する。長さが16バイトでなければエラーを返す。
func NewBlock(b []byte) (Block, error) {
	var blk Block
	if len(b) != BlockSize {
		return blk, fmt.Errorf("%w: block must be %d bytes, got %d", ErrInvalidLength, BlockSize, len(b))
	}
	copy(blk[:], b)
	return blk, nil
}

// at は行 r、列 c のバイトを返す。
func (b *Block) at(r, c int) byte {
	return b[r+4*c]
}

// set は行 r、列 c のバイトを設定する。
func (b *Block) set(r, c int, v byte) {
	b[r+4*c] = v
}

// column は列 c の4バイトを返す。
func (b *Block) column(c int) [4]byte {
	return [4]byte{b[4*c], b[4*c+1], b[4*c+2], b[4*c+3]}
}

// String は16進文字列を返す。
func (b Block) String() string {
	return hex.EncodeToString(b[:])
}

// Strings はラウンド鍵を16進文字列の一覧で返す。
func (s *RoundKeySchedule) Strings() []string {
	out := make([]string, len(s))
	for i := range s {
		out[i] = s[i].String()
	}
	return out
}
