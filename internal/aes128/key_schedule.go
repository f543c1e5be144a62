package aes128

// word は鍵拡張で扱う4バイトの語。
type word [4]byte

func (w word) xor(o word) word {
	return word{w[0] ^ o[0], w[1] ^ o[1], w[2] ^ o[2], w[3] ^ o[3]}
}

// rotWord は1バイト左に巡回する。
func rotWord(w word) word {
	return word{w[1], w[2], w[3], w[0]}
}

// subWord は各バイトをS-boxで置換する。
func subWord(w word) word {
	return word{sbox[w[0]], sbox[w[1]], sbox[w[2]], sbox[w[3]]}
}

// g は鍵拡張の非線形関数。先頭バイトにのみRconをXORする。
func g(w word, round int) word {
	w = subWord(rotWord(w))
	w[0] ^= rcon[round]
	return w
}

// nextRoundKey は直前のラウンド鍵から次のラウンド鍵を導出する。
func nextRoundKey(prev Block, round int) Block {
	var w [4]word
	for i := range w {
		copy(w[i][:], prev[4*i:4*i+4])
	}

	w4 := w[0].xor(g(w[3], round))
	w5 := w4.xor(w[1])
	w6 := w5.xor(w[2])
	w7 := w6.xor(w[3])

	var next Block
	copy(next[0:4], w4[:])
	copy(next[4:8], w5[:])
	copy(next[8:12], w6[:])
	copy(next[12:16], w7[:])
	return next
}

// ExpandKey は暗号鍵から10個のラウンド鍵を生成する。
func ExpandKey(key CipherKey) RoundKeySchedule {
	var schedule RoundKeySchedule
	prev := Block(key)
	for r := 0; r < Rounds; r++ {
		schedule[r] = nextRoundKey(prev, r)
		prev = schedule[r]
	}
	return schedule
}

// ExpandKeyBytes はバイト列の鍵を検証してから鍵拡張する。
func ExpandKeyBytes(key []byte) (RoundKeySchedule, error) {
	k, err := NewCipherKey(key)
	if err != nil {
		return RoundKeySchedule{}, err
	}
	return ExpandKey(k), nil
}
