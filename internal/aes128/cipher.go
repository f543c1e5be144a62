package aes128

import "github.com/lukechampine/fastxor"

// mixMatrix はMixColumnsの係数行列。
var mixMatrix = [4][4]byte{
	{2, 3, 1, 1},
	{1, 2, 3, 1},
	{1, 1, 2, 3},
	{3, 1, 1, 2},
}

// RoundObserver は各ラウンド終了時の状態を受け取るフック。
// round 0 は初期鍵加算の直後を表す。
type RoundObserver func(round int, state Block)

// xtime はGF(2^8)で2を掛ける。既約多項式は0x11B。
func xtime(b byte) byte {
	if b&0x80 != 0 {
		return b<<1 ^ 0x1b
	}
	return b << 1
}

// mul はMixColumnsの係数（1, 2, 3）を掛ける。
func mul(coef, b byte) byte {
	switch coef {
	case 1:
		return b
	case 2:
		return xtime(b)
	case 3:
		return xtime(b) ^ b
	default:
		panic("aes128: unsupported mix coefficient")
	}
}

func subBytes(state *Block) {
	for i, b := range state {
		state[i] = sbox[b]
	}
}

// shiftRows は行 r を r バイト左に巡回する。
func shiftRows(state *Block) {
	in := *state
	for r := 1; r < 4; r++ {
		for c := 0; c < 4; c++ {
			state.set(r, c, in.at(r, (c+r)%4))
		}
	}
}

// mixColumns は各列を係数行列で乗算する。
func mixColumns(state *Block) {
	for c := 0; c < 4; c++ {
		col := state.column(c)
		for r := 0; r < 4; r++ {
			var sum byte
			for i, v := range col {
				sum ^= mul(mixMatrix[r][i], v)
			}
			state.set(r, c, sum)
		}
	}
}

func addRoundKey(state *Block, roundKey *Block) {
	fastxor.Bytes(state[:], state[:], roundKey[:])
}

// EncryptBlock は1ブロックを暗号化する。scheduleは値渡しで呼び出し側の配列は変更しない。
func EncryptBlock(key CipherKey, schedule RoundKeySchedule, plaintext Block) Block {
	return EncryptBlockObserved(key, schedule, plaintext, nil)
}

// EncryptBlockObserved はEncryptBlockと同じ処理を行い、各ラウンド後の状態をobserverに渡す。
// observerがnilの場合は何もしない。
func EncryptBlockObserved(key CipherKey, schedule RoundKeySchedule, plaintext Block, observer RoundObserver) Block {
	state := plaintext
	whitening := Block(key)
	addRoundKey(&state, &whitening)
	if observer != nil {
		observer(0, state)
	}

	for j := 1; j <= Rounds; j++ {
		subBytes(&state)
		shiftRows(&state)
		// 最終ラウンドはMixColumnsを行わない
		if j != Rounds {
			mixColumns(&state)
		}
		addRoundKey(&state, &schedule[j-1])
		if observer != nil {
			observer(j, state)
		}
	}

	return state
}

// Encrypt はバイト列の鍵と平文を検証し、鍵拡張してから1ブロックを暗号化する。
func Encrypt(key, plaintext []byte) (Block, error) {
	k, err := NewCipherKey(key)
	if err != nil {
		return Block{}, err
	}
	pt, err := NewBlock(plaintext)
	if err != nil {
		return Block{}, err
	}
	schedule := ExpandKey(k)
	return EncryptBlock(k, schedule, pt), nil
}
