package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/guardian-coverdrop/coverdrop-core/crypto/keys"
)

var rotateRole string

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Report rotation-schedule status for a key pair",
}

var rotateStatusCmd = &cobra.Command{
	Use:   "status <key-pair-file>",
	Short: "Report whether a key pair is due for rotation",
	Long: `Reports a signed identity key pair's expiry and whether it has crossed
its role's rotate-after age, using the same age comparison
IdentityRotator.CreateCandidateIfDue applies before generating a fresh
candidate. Since a key pair file records only its own expiry, the key's
creation time is inferred as NotValidAfter minus the role's standard
validity period.`,
	Args: cobra.ExactArgs(1),
	RunE: runRotateStatus,
}

func init() {
	rootCmd.AddCommand(rotateCmd)
	rotateCmd.AddCommand(rotateStatusCmd)

	rotateStatusCmd.Flags().StringVar(&rotateRole, "role", "", "role of the key pair: organization, covernode_provisioning, journalist_provisioning, admin, backup_id, covernode_id, journalist_id")
	_ = rotateStatusCmd.MarkFlagRequired("role")
}

func roleIDFromFlag(role string) (keys.RoleID, error) {
	switch role {
	case "organization":
		return keys.RoleOrganization, nil
	case "covernode_provisioning":
		return keys.RoleCoverNodeProvisioning, nil
	case "journalist_provisioning":
		return keys.RoleJournalistProvisioning, nil
	case "admin":
		return keys.RoleAdmin, nil
	case "backup_id":
		return keys.RoleBackupID, nil
	case "covernode_id":
		return keys.RoleCoverNodeID, nil
	case "journalist_id":
		return keys.RoleJournalistID, nil
	default:
		return 0, fmt.Errorf("unsupported role: %s", role)
	}
}

func reportRotationStatus(roleID keys.RoleID, notValidAfter time.Time) {
	validity, rotateAfter := keys.Lifetime(roleID)
	impliedCreatedAt := notValidAfter.Add(-validity)
	now := time.Now().UTC()
	age := now.Sub(impliedCreatedAt)
	due := age >= rotateAfter

	fmt.Printf("role:              %s\n", roleID)
	fmt.Printf("not valid after:   %s\n", notValidAfter.Format(time.RFC3339))
	fmt.Printf("inferred age:      %s\n", age.Round(time.Second))
	fmt.Printf("rotate-after:      %s\n", rotateAfter)
	fmt.Printf("expired:           %t\n", now.After(notValidAfter))
	fmt.Printf("due for rotation:  %t\n", due)
}

func runRotateStatus(cmd *cobra.Command, args []string) error {
	roleID, err := roleIDFromFlag(rotateRole)
	if err != nil {
		return err
	}

	switch roleID {
	case keys.RoleOrganization:
		pair, err := keys.ReadSignedSigningKeyPair[keys.Organization](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	case keys.RoleCoverNodeProvisioning:
		pair, err := keys.ReadSignedSigningKeyPair[keys.CoverNodeProvisioning](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	case keys.RoleJournalistProvisioning:
		pair, err := keys.ReadSignedSigningKeyPair[keys.JournalistProvisioning](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	case keys.RoleAdmin:
		pair, err := keys.ReadSignedSigningKeyPair[keys.Admin](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	case keys.RoleBackupID:
		pair, err := keys.ReadSignedSigningKeyPair[keys.BackupID](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	case keys.RoleCoverNodeID:
		pair, err := keys.ReadSignedSigningKeyPair[keys.CoverNodeID](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	case keys.RoleJournalistID:
		pair, err := keys.ReadSignedSigningKeyPair[keys.JournalistID](args[0])
		if err != nil {
			return fmt.Errorf("reading key pair: %w", err)
		}
		reportRotationStatus(roleID, pair.NotValidAfter)
	default:
		return fmt.Errorf("unsupported role: %s", rotateRole)
	}
	return nil
}
