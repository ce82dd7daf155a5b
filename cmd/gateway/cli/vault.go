package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbgateway/gateway/internal/vault"
)

// newVaultCmd exposes the vault.Encrypt/Decrypt pair directly, for
// operators migrating secrets into servers.json by hand instead of through
// 'gateway server add'.
func newVaultCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Encrypt or decrypt a value under the gateway vault secret",
		Long:  "Seals or opens a single value (a password, an SSH private key) under the same passphrase servers.json secrets are encrypted with, for manual document migration.",
	}

	cmd.AddCommand(newVaultEncryptCmd())
	cmd.AddCommand(newVaultDecryptCmd())

	return cmd
}

func newVaultEncryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a plaintext value",
		Long:  "Encrypts value (or, if omitted, a line read from stdin) under GATEWAY_VAULT_SECRET and prints the resulting ciphertext.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := vaultArgOrStdin(args)
			if err != nil {
				return err
			}
			ciphertext, err := vault.Encrypt(plaintext, vaultSecret())
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			fmt.Println(ciphertext)
			return nil
		},
	}
}

func newVaultDecryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [value]",
		Short: "Decrypt a ciphertext value",
		Long:  "Decrypts value (or, if omitted, a line read from stdin) under GATEWAY_VAULT_SECRET and prints the plaintext.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ciphertext, err := vaultArgOrStdin(args)
			if err != nil {
				return err
			}
			plaintext, err := vault.Decrypt(ciphertext, vaultSecret())
			if err != nil {
				return fmt.Errorf("decrypt: %w", err)
			}
			fmt.Println(plaintext)
			return nil
		},
	}
}

func vaultArgOrStdin(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("vault: no value given and stdin is empty")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
