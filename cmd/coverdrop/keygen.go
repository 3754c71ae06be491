package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

var (
	keygenOutDir   string
	keygenParent   string
	keygenRole     string
	keygenValidFor time.Duration
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate signing key pairs",
}

var keygenOrgCmd = &cobra.Command{
	Use:   "org",
	Short: "Generate a self-signed organization anchor key pair",
	Long: `Generates a fresh Organization anchor: an Ed25519 pair whose public half
is signed by its own private half. This is the trust root every other
role's certificate chains up to; its digest must be distributed to clients
out-of-band.`,
	RunE: runKeygenOrg,
}

var keygenChildCmd = &cobra.Command{
	Use:   "child",
	Short: "Generate a key pair signed by a parent key on disk",
	Long: `Generates a fresh Ed25519 pair for --role and signs it under the parent
key pair loaded from --parent. The parent role is inferred from --role:

  covernode_provisioning, journalist_provisioning, admin, backup_id  -> organization
  covernode_id                                                      -> covernode_provisioning
  journalist_id                                                     -> journalist_provisioning`,
	RunE: runKeygenChild,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.AddCommand(keygenOrgCmd)
	keygenCmd.AddCommand(keygenChildCmd)

	keygenCmd.PersistentFlags().StringVarP(&keygenOutDir, "out-dir", "o", ".", "directory to write the generated key pair file into")

	keygenOrgCmd.Flags().DurationVar(&keygenValidFor, "valid-for", 0, "validity period (default: role's standard lifetime)")

	keygenChildCmd.Flags().StringVar(&keygenParent, "parent", "", "path to the parent's signed key pair file (required)")
	keygenChildCmd.Flags().StringVar(&keygenRole, "role", "", "role to generate: covernode_provisioning, journalist_provisioning, admin, backup_id, covernode_id, journalist_id")
	keygenChildCmd.Flags().DurationVar(&keygenValidFor, "valid-for", 0, "validity period (default: role's standard lifetime)")
	_ = keygenChildCmd.MarkFlagRequired("parent")
	_ = keygenChildCmd.MarkFlagRequired("role")
}

func runKeygenOrg(cmd *cobra.Command, args []string) error {
	validity, _ := keys.Lifetime(keys.RoleOrganization)
	if keygenValidFor > 0 {
		validity = keygenValidFor
	}
	notValidAfter := time.Now().UTC().Add(validity)

	pair, err := keys.GenerateSelfSignedOrgKey(notValidAfter)
	if err != nil {
		return fmt.Errorf("generating organization anchor: %w", err)
	}

	path, err := keys.WriteSignedSigningKeyPair(keygenOutDir, pair)
	if err != nil {
		return fmt.Errorf("writing organization anchor: %w", err)
	}

	fmt.Printf("organization anchor written to %s\n", path)
	fmt.Printf("  not valid after: %s\n", pair.NotValidAfter.Format(time.RFC3339))
	return nil
}

func runKeygenChild(cmd *cobra.Command, args []string) error {
	switch keygenRole {
	case "covernode_provisioning":
		return keygenUnderOrg[keys.CoverNodeProvisioning](keys.RoleCoverNodeProvisioning)
	case "journalist_provisioning":
		return keygenUnderOrg[keys.JournalistProvisioning](keys.RoleJournalistProvisioning)
	case "admin":
		return keygenUnderOrg[keys.Admin](keys.RoleAdmin)
	case "backup_id":
		return keygenUnderOrg[keys.BackupID](keys.RoleBackupID)
	case "covernode_id":
		return keygenUnderCoverNodeProvisioning(keys.RoleCoverNodeID)
	case "journalist_id":
		return keygenUnderJournalistProvisioning(keys.RoleJournalistID)
	default:
		return fmt.Errorf("unsupported role: %s", keygenRole)
	}
}

func resolveValidity(role keys.RoleID) time.Time {
	validity, _ := keys.Lifetime(role)
	if keygenValidFor > 0 {
		validity = keygenValidFor
	}
	return time.Now().UTC().Add(validity)
}

func keygenUnderOrg[C keys.Role](role keys.RoleID) error {
	parent, err := keys.ReadSignedSigningKeyPair[keys.Organization](keygenParent)
	if err != nil {
		return fmt.Errorf("reading parent key: %w", err)
	}

	unsigned, err := keys.GenerateUnsignedSigningKeyPair[C]()
	if err != nil {
		return fmt.Errorf("generating %s key pair: %w", role, err)
	}

	signed, truncated, err := keys.SignChild[keys.Organization, C](parent, unsigned.Public, resolveValidity(role))
	if err != nil {
		return fmt.Errorf("signing %s key: %w", role, err)
	}

	out := keys.SignedSigningKeyPair[C]{SignedPublicSigningKey: signed, Private: unsigned.Private}
	path, err := keys.WriteSignedSigningKeyPair(keygenOutDir, out)
	if err != nil {
		return fmt.Errorf("writing %s key pair: %w", role, err)
	}

	fmt.Printf("%s key pair written to %s\n", role, path)
	if truncated {
		fmt.Println("  note: validity truncated to parent's expiry")
	}
	return nil
}

func keygenUnderCoverNodeProvisioning(role keys.RoleID) error {
	parent, err := keys.ReadSignedSigningKeyPair[keys.CoverNodeProvisioning](keygenParent)
	if err != nil {
		return fmt.Errorf("reading parent key: %w", err)
	}

	unsigned, err := keys.GenerateUnsignedSigningKeyPair[keys.CoverNodeID]()
	if err != nil {
		return fmt.Errorf("generating %s key pair: %w", role, err)
	}

	signed, truncated, err := keys.SignChild[keys.CoverNodeProvisioning, keys.CoverNodeID](parent, unsigned.Public, resolveValidity(role))
	if err != nil {
		return fmt.Errorf("signing %s key: %w", role, err)
	}

	out := keys.SignedSigningKeyPair[keys.CoverNodeID]{SignedPublicSigningKey: signed, Private: unsigned.Private}
	path, err := keys.WriteSignedSigningKeyPair(keygenOutDir, out)
	if err != nil {
		return fmt.Errorf("writing %s key pair: %w", role, err)
	}

	fmt.Printf("%s key pair written to %s\n", role, path)
	if truncated {
		fmt.Println("  note: validity truncated to parent's expiry")
	}
	return nil
}

func keygenUnderJournalistProvisioning(role keys.RoleID) error {
	parent, err := keys.ReadSignedSigningKeyPair[keys.JournalistProvisioning](keygenParent)
	if err != nil {
		return fmt.Errorf("reading parent key: %w", err)
	}

	unsigned, err := keys.GenerateUnsignedSigningKeyPair[keys.JournalistID]()
	if err != nil {
		return fmt.Errorf("generating %s key pair: %w", role, err)
	}

	signed, truncated, err := keys.SignChild[keys.JournalistProvisioning, keys.JournalistID](parent, unsigned.Public, resolveValidity(role))
	if err != nil {
		return fmt.Errorf("signing %s key: %w", role, err)
	}

	out := keys.SignedSigningKeyPair[keys.JournalistID]{SignedPublicSigningKey: signed, Private: unsigned.Private}
	path, err := keys.WriteSignedSigningKeyPair(keygenOutDir, out)
	if err != nil {
		return fmt.Errorf("writing %s key pair: %w", role, err)
	}

	fmt.Printf("%s key pair written to %s\n", role, path)
	if truncated {
		fmt.Println("  note: validity truncated to parent's expiry")
	}
	return nil
}
