package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/guardian-coverdrop/coverdrop-core/hierarchy"
)

var hierarchyJournalist string

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy",
	Short: "Build and inspect a public-key hierarchy snapshot",
}

var hierarchyInspectCmd = &cobra.Command{
	Use:   "inspect <input.json>",
	Short: "Build a hierarchy from a flattened key-row snapshot and summarize it",
	Long: `Reads a hierarchy.Input JSON document (the flattened anchor/provisioning/
identity/messaging rows a public-keys API would otherwise serve), verifies
every row's signature chain, and prints how many keys survived verification.`,
	Args: cobra.ExactArgs(1),
	RunE: runHierarchyInspect,
}

func init() {
	rootCmd.AddCommand(hierarchyCmd)
	hierarchyCmd.AddCommand(hierarchyInspectCmd)

	hierarchyInspectCmd.Flags().StringVar(&hierarchyJournalist, "journalist", "", "print messaging key count for this journalist identity")
}

func runHierarchyInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	var input hierarchy.Input
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	now := time.Now().UTC()
	h := hierarchy.Build(input, now)

	fmt.Printf("organizations:  %d\n", len(h.Families))
	fmt.Printf("verified keys:  %d\n", h.KeyCount())
	fmt.Printf("max epoch:      %d\n", h.MaxEpoch)
	fmt.Printf("journalists:    %d\n", len(h.AllJournalistIdentities()))
	fmt.Printf("covernode msg:  %d\n", len(h.LatestCoverNodeMessagingKeys()))

	if hierarchyJournalist != "" {
		keys := h.LatestJournalistMessagingKeys(hierarchyJournalist)
		fmt.Printf("%s messaging keys: %d\n", hierarchyJournalist, len(keys))
	}

	return nil
}
