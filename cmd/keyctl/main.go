// Package main はCLIツールのエントリポイント。
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aes128-service/internal/handler"
)

const version = "1.0.0"

var (
	apiURL  string
	output  string
	timeout time.Duration
)

var client *apiClient

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keyctl",
		Short:         "AES-128 block cipher service CLI",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if apiURL == "" {
				apiURL = os.Getenv("KEYCTL_API_URL")
			}
			client = newAPIClient(apiURL, &http.Client{Timeout: timeout})
		},
	}

	// グローバルフラグ
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API endpoint URL (or set KEYCTL_API_URL)")
	rootCmd.PersistentFlags().StringVar(&output, "output", "text", "Output format: text, json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(rotateCmd())
	rootCmd.AddCommand(revokeCmd())
	rootCmd.AddCommand(encryptCmd())
	rootCmd.AddCommand(cipherCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// versionCmd はバージョン情報を表示する。
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "keyctl version %s\n", version)
		},
	}
}

func requireAPIURL() error {
	if apiURL == "" {
		return fmt.Errorf("--api-url is required (or set KEYCTL_API_URL)")
	}
	return nil
}

func keysPath(keyring string) string {
	return "/v1/keyrings/" + url.PathEscape(keyring) + "/keys"
}

// printMetadata は鍵メタデータのレスポンスを出力する。
func printMetadata(cmd *cobra.Command, body []byte, verb string) error {
	if output == "json" {
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	}
	var result handler.KeyMetadataResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s key for keyring %q (version: %d)\n", verb, result.Keyring, result.Version)
	return nil
}

// createCmd はキーリングに鍵を登録するコマンド。
func createCmd() *cobra.Command {
	var keyring, keyHex string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the first key of a keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIURL(); err != nil {
				return err
			}

			var reqBody any
			if keyHex != "" {
				reqBody = handler.CreateKeyRequest{Key: keyHex}
			}
			body, err := client.do(cmd.Context(), http.MethodPost, keysPath(keyring), reqBody, http.StatusCreated)
			if err != nil {
				return err
			}
			return printMetadata(cmd, body, "Created")
		},
	}
	cmd.Flags().StringVar(&keyring, "keyring", "", "Keyring name (required)")
	cmd.Flags().StringVar(&keyHex, "key", "", "Hex-encoded 16-byte key to import (random if omitted)")
	cmd.MarkFlagRequired("keyring")
	return cmd
}

// rotateCmd は鍵のローテーションコマンド。
func rotateCmd() *cobra.Command {
	var keyring string
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Add a new key version to a keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIURL(); err != nil {
				return err
			}

			body, err := client.do(cmd.Context(), http.MethodPost, keysPath(keyring)+"/rotate", nil, http.StatusCreated)
			if err != nil {
				return err
			}
			return printMetadata(cmd, body, "Rotated")
		},
	}
	cmd.Flags().StringVar(&keyring, "keyring", "", "Keyring name (required)")
	cmd.MarkFlagRequired("keyring")
	return cmd
}

// listCmd は鍵一覧コマンド。
func listCmd() *cobra.Command {
	var keyring string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all key versions of a keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIURL(); err != nil {
				return err
			}

			body, err := client.do(cmd.Context(), http.MethodGet, keysPath(keyring), nil, http.StatusOK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if output == "json" {
				fmt.Fprintln(out, string(body))
				return nil
			}
			var result handler.KeyListResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintf(out, "%-8s %-8s %s\n", "VERSION", "STATUS", "CREATED_AT")
			for _, k := range result.Keys {
				fmt.Fprintf(out, "%-8d %-8s %s\n", k.Version, k.Status, k.CreatedAt)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyring, "keyring", "", "Keyring name (required)")
	cmd.MarkFlagRequired("keyring")
	return cmd
}

// revokeCmd は鍵の失効コマンド。
func revokeCmd() *cobra.Command {
	var keyring string
	var keyVersion uint
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke a key version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyVersion == 0 {
				return fmt.Errorf("--version is required")
			}
			if err := requireAPIURL(); err != nil {
				return err
			}

			path := fmt.Sprintf("%s/%d", keysPath(keyring), keyVersion)
			if _, err := client.do(cmd.Context(), http.MethodDelete, path, nil, http.StatusAccepted); err != nil {
				return err
			}

			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), "{}")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Revoked key for keyring %q (version: %d)\n", keyring, keyVersion)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyring, "keyring", "", "Keyring name (required)")
	cmd.Flags().UintVar(&keyVersion, "version", 0, "Key version (required)")
	cmd.MarkFlagRequired("keyring")
	cmd.MarkFlagRequired("version")
	return cmd
}

// encryptCmd はキーリングの鍵で1ブロックを暗号化するコマンド。
func encryptCmd() *cobra.Command {
	var keyring, plaintext string
	var keyVersion uint
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt one 16-byte block with a keyring key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAPIURL(); err != nil {
				return err
			}

			path := "/v1/keyrings/" + url.PathEscape(keyring) + "/encrypt"
			reqBody := handler.EncryptRequest{Plaintext: plaintext, Version: keyVersion}
			body, err := client.do(cmd.Context(), http.MethodPost, path, reqBody, http.StatusOK)
			if err != nil {
				return err
			}

			if output == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(body))
				return nil
			}
			var result handler.EncryptResponse
			if err := json.Unmarshal(body, &result); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (keyring: %s, version: %d)\n", result.Ciphertext, result.Keyring, result.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyring, "keyring", "", "Keyring name (required)")
	cmd.Flags().StringVar(&plaintext, "plaintext", "", "Hex-encoded 16-byte plaintext (required)")
	cmd.Flags().UintVar(&keyVersion, "version", 0, "Key version (latest active if omitted)")
	cmd.MarkFlagRequired("keyring")
	cmd.MarkFlagRequired("plaintext")
	return cmd
}
