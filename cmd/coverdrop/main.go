package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coverdrop",
	Short: "CoverDrop key and vault management CLI",
	Long: `coverdrop provides offline tools for the anonymous two-way messaging
system's trust hierarchy: generating and signing identity keys, inspecting
a built hierarchy snapshot, managing a passphrase-protected key vault, and
reporting rotation-schedule status for a key pair.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
