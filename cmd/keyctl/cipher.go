package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/pbkdf2"

	"aes128-service/internal/aes128"
	"aes128-service/internal/usecase"
)

const (
	defaultSalt       = "aes128-service"
	defaultIterations = 600000
)

// cipherCmd はサーバーを介さずに手元で暗号処理を行うコマンド群。
func cipherCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cipher",
		Short: "Run the block cipher locally",
	}
	cmd.AddCommand(cipherEncryptCmd())
	cmd.AddCommand(cipherExpandCmd())
	cmd.AddCommand(cipherSelfTestCmd())
	return cmd
}

// deriveKey はパスフレーズからPBKDF2-SHA256で16バイト鍵を導出する。
func deriveKey(passphrase, salt string, iterations int) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(salt), iterations, aes128.KeySize, sha256.New)
}

func decodeHexFlag(name, value string) ([]byte, error) {
	b, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("--%s must be hex encoded: %w", name, err)
	}
	return b, nil
}

func cipherEncryptCmd() *cobra.Command {
	var keyHex, passphrase, salt, plaintextHex string
	var iterations int
	var trace bool
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt one 16-byte block",
		RunE: func(cmd *cobra.Command, args []string) error {
			var key []byte
			switch {
			case keyHex != "" && passphrase != "":
				return errors.New("--key and --passphrase are mutually exclusive")
			case keyHex != "":
				var err error
				if key, err = decodeHexFlag("key", keyHex); err != nil {
					return err
				}
			case passphrase != "":
				if iterations < 1 {
					return errors.New("--iterations must be positive")
				}
				key = deriveKey(passphrase, salt, iterations)
			default:
				return errors.New("either --key or --passphrase is required")
			}
			defer clear(key)

			plaintext, err := decodeHexFlag("plaintext", plaintextHex)
			if err != nil {
				return err
			}

			service := usecase.NewCipherService()
			out := cmd.OutOrStdout()
			if !trace {
				ct, err := service.Encrypt(cmd.Context(), key, plaintext)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ct.String())
				return nil
			}

			states, err := service.Trace(cmd.Context(), key, plaintext)
			if err != nil {
				return err
			}
			for _, s := range states {
				fmt.Fprintf(out, "round %2d: %s\n", s.Round, s.State)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex-encoded 16-byte key")
	cmd.Flags().StringVar(&passphrase, "passphrase", "", "Passphrase to derive the key from (PBKDF2-SHA256)")
	cmd.Flags().StringVar(&salt, "salt", defaultSalt, "Salt for --passphrase")
	cmd.Flags().IntVar(&iterations, "iterations", defaultIterations, "PBKDF2 iterations for --passphrase")
	cmd.Flags().StringVar(&plaintextHex, "plaintext", "", "Hex-encoded 16-byte plaintext (required)")
	cmd.Flags().BoolVar(&trace, "trace", false, "Print the state after every round")
	cmd.MarkFlagRequired("plaintext")
	return cmd
}

func cipherExpandCmd() *cobra.Command {
	var keyHex string
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Print the ten round keys derived from a key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := decodeHexFlag("key", keyHex)
			if err != nil {
				return err
			}

			schedule, err := usecase.NewCipherService().ExpandKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			for i, rk := range schedule.Strings() {
				fmt.Fprintf(cmd.OutOrStdout(), "round %2d: %s\n", i+1, rk)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex-encoded 16-byte key (required)")
	cmd.MarkFlagRequired("key")
	return cmd
}

func cipherSelfTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Run the known answer tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := aes128.SelfTest()
			if err != nil {
				return err
			}

			pass := color.New(color.FgGreen, color.Bold).SprintFunc()
			fail := color.New(color.FgRed, color.Bold).SprintFunc()
			out := cmd.OutOrStdout()

			failed := 0
			for _, r := range results {
				if r.Passed {
					fmt.Fprintf(out, "%s %s: %s\n", pass("PASS"), r.Name, r.Actual)
					continue
				}
				failed++
				fmt.Fprintf(out, "%s %s: expected %s, got %s\n", fail("FAIL"), r.Name, r.Expected, r.Actual)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d known answer tests failed", failed, len(results))
			}
			return nil
		},
	}
}
