package aes128

import (
	"encoding/hex"
	"fmt"
)

// KnownAnswerTest は既知解テストのベクタ。値は16進文字列。
type KnownAnswerTest struct {
	Name       string
	Key        string
	Plaintext  string
	Ciphertext string
}

// KnownAnswerTests は自己診断で使うベクタ一覧。
var KnownAnswerTests = []KnownAnswerTest{
	{
		Name:       "single-bit-key",
		Key:        "80000000000000000000000000000000",
		Plaintext:  "00000000000000000000000000000000",
		Ciphertext: "0edd33d3c621e546455bd8ba1418bec8",
	},
	{
		// "Thats my Kung Fu" / "Two One Nine Two"
		Name:       "kung-fu",
		Key:        "5468617473206d79204b756e67204675",
		Plaintext:  "54776f204f6e65204e696e652054776f",
		Ciphertext: "29c3505f571420f6402299b31a02d73a",
	},
}

// KnownAnswerResult は既知解テスト1件の結果。
type KnownAnswerResult struct {
	Name     string
	Expected string
	Actual   string
	Passed   bool
}

// Run はベクタを暗号化して期待値と比較する。
func (v KnownAnswerTest) Run() (KnownAnswerResult, error) {
	key, err := hex.DecodeString(v.Key)
	if err != nil {
		return KnownAnswerResult{}, fmt.Errorf("decoding key of %s: %w", v.Name, err)
	}
	pt, err := hex.DecodeString(v.Plaintext)
	if err != nil {
		return KnownAnswerResult{}, fmt.Errorf("decoding plaintext of %s: %w", v.Name, err)
	}

	ct, err := Encrypt(key, pt)
	if err != nil {
		return KnownAnswerResult{}, fmt.Errorf("encrypting %s: %w", v.Name, err)
	}

	return KnownAnswerResult{
		Name:     v.Name,
		Expected: v.Ciphertext,
		Actual:   ct.String(),
		Passed:   ct.String() == v.Ciphertext,
	}, nil
}

// SelfTest は全ベクタを実行し、結果を返す。
func SelfTest() ([]KnownAnswerResult, error) {
	results := make([]KnownAnswerResult, 0, len(KnownAnswerTests))
	for _, v := range KnownAnswerTests {
		res, err := v.Run()
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}
