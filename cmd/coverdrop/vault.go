package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/vault"
)

var vaultDir string

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage a passphrase-protected key vault",
}

var vaultStoreCmd = &cobra.Command{
	Use:   "store <key-id> <file>",
	Short: "Encrypt file and store it under key-id",
	Args:  cobra.ExactArgs(2),
	RunE:  runVaultStore,
}

var vaultLoadCmd = &cobra.Command{
	Use:   "load <key-id> <out-file>",
	Short: "Decrypt key-id and write it to out-file",
	Args:  cobra.ExactArgs(2),
	RunE:  runVaultLoad,
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List key IDs held in the vault",
	Args:  cobra.NoArgs,
	RunE:  runVaultList,
}

var vaultDeleteCmd = &cobra.Command{
	Use:   "delete <key-id>",
	Short: "Remove key-id from the vault",
	Args:  cobra.ExactArgs(1),
	RunE:  runVaultDelete,
}

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultStoreCmd, vaultLoadCmd, vaultListCmd, vaultDeleteCmd)

	vaultCmd.PersistentFlags().StringVarP(&vaultDir, "dir", "d", ".coverdrop/vault", "vault directory")
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(passphrase), nil
}

func runVaultStore(cmd *cobra.Command, args []string) error {
	keyID, file := args[0], args[1]

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}

	passphrase, err := promptPassphrase("Vault passphrase: ")
	if err != nil {
		return err
	}

	v, err := vault.NewFileVault(vaultDir)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	if err := v.StoreEncrypted(keyID, data, passphrase); err != nil {
		return fmt.Errorf("storing %s: %w", keyID, err)
	}

	fmt.Printf("stored %s (%d bytes) in %s\n", keyID, len(data), vaultDir)
	return nil
}

func runVaultLoad(cmd *cobra.Command, args []string) error {
	keyID, outFile := args[0], args[1]

	passphrase, err := promptPassphrase("Vault passphrase: ")
	if err != nil {
		return err
	}

	v, err := vault.NewFileVault(vaultDir)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	data, err := v.LoadDecrypted(keyID, passphrase)
	if err != nil {
		return fmt.Errorf("loading %s: %w", keyID, err)
	}

	if err := os.WriteFile(outFile, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", outFile, err)
	}

	fmt.Printf("wrote %d bytes to %s\n", len(data), outFile)
	return nil
}

func runVaultList(cmd *cobra.Command, args []string) error {
	v, err := vault.NewFileVault(vaultDir)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	keyIDs := v.ListKeys()
	if len(keyIDs) == 0 {
		fmt.Println("(empty)")
		return nil
	}
	for _, id := range keyIDs {
		fmt.Println(id)
	}
	return nil
}

func runVaultDelete(cmd *cobra.Command, args []string) error {
	keyID := args[0]

	v, err := vault.NewFileVault(vaultDir)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	if err := v.Delete(keyID); err != nil {
		return fmt.Errorf("deleting %s: %w", keyID, err)
	}

	fmt.Printf("deleted %s\n", keyID)
	return nil
}
