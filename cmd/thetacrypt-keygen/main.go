// Command thetacrypt-keygen runs trusted-dealer key generation (spec.md §1:
// "keys are produced by a trusted dealer") and writes one keychain file per
// party, mirroring original_source's protocols/src/bin/keygen.rs.
package main

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thetacrypt/thetacrypt-go/pkg/dealer"
	"github.com/thetacrypt/thetacrypt-go/pkg/group"
	_ "github.com/thetacrypt/thetacrypt-go/pkg/group/ec"
	"github.com/thetacrypt/thetacrypt-go/pkg/keychain"
	"github.com/thetacrypt/thetacrypt-go/pkg/keys"
	"github.com/thetacrypt/thetacrypt-go/pkg/schemeid"
)

var (
	schemeFlag    string
	groupFlag     string
	threshold     int
	parties       int
	outputDir     string
	frostPoolCap  int

	rootCmd = &cobra.Command{
		Use:   "thetacrypt-keygen",
		Short: "Generate threshold key shares for a thetacrypt deployment",
		Long: `thetacrypt-keygen runs a trusted-dealer key generation for one of the six
schemes in the thetacrypt scheme catalog and writes a keychain file per party
(spec.md §6, Keychain file format).`,
		RunE: runKeygen,
	}
)

func init() {
	rootCmd.Flags().StringVarP(&schemeFlag, "scheme", "s", "", "scheme: sg02, bz03, bls04, cks05, frost, sh00 (required)")
	rootCmd.Flags().StringVarP(&groupFlag, "group", "g", "", "group: bls12381, bn254, ed25519, rsa512, rsa1024, rsa2048, rsa4096 (required)")
	rootCmd.Flags().IntVarP(&threshold, "threshold", "k", 0, "threshold (required)")
	rootCmd.Flags().IntVarP(&parties, "parties", "n", 0, "total number of parties (required)")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "./keys", "directory to write one keychain file per party")
	rootCmd.Flags().IntVar(&frostPoolCap, "frost-pool-cap", 16, "FROST precomputation pool capacity per party's keychain")
	rootCmd.MarkFlagRequired("scheme")
	rootCmd.MarkFlagRequired("group")
	rootCmd.MarkFlagRequired("threshold")
	rootCmd.MarkFlagRequired("parties")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "thetacrypt-keygen: %v\n", err)
		os.Exit(1)
	}
}

func parseScheme(s string) (schemeid.ID, error) {
	switch strings.ToLower(s) {
	case "sg02":
		return schemeid.Sg02, nil
	case "bz03":
		return schemeid.Bz03, nil
	case "bls04":
		return schemeid.Bls04, nil
	case "cks05":
		return schemeid.Cks05, nil
	case "frost":
		return schemeid.Frost, nil
	case "sh00":
		return schemeid.Sh00, nil
	default:
		return 0, fmt.Errorf("unknown scheme %q", s)
	}
}

func parseGroup(s string) (group.ID, error) {
	switch strings.ToLower(s) {
	case "bls12381":
		return group.Bls12381, nil
	case "bn254":
		return group.Bn254, nil
	case "ed25519":
		return group.Ed25519, nil
	case "rsa512":
		return group.Rsa512, nil
	case "rsa1024":
		return group.Rsa1024, nil
	case "rsa2048":
		return group.Rsa2048, nil
	case "rsa4096":
		return group.Rsa4096, nil
	default:
		return 0, fmt.Errorf("unknown group %q", s)
	}
}

func runKeygen(cmd *cobra.Command, args []string) error {
	scheme, err := parseScheme(schemeFlag)
	if err != nil {
		return err
	}
	grp, err := parseGroup(groupFlag)
	if err != nil {
		return err
	}
	if !scheme.SupportsGroup(grp) {
		return fmt.Errorf("scheme %s does not support group %s", scheme, grp)
	}

	var shares []*keys.PrivateKeyShare
	if grp.IsRSA() {
		shares, err = dealer.GenerateSH00Keys(grp, parties, threshold, rand.Reader)
	} else {
		shares, err = dealer.GenerateGroupKeys(scheme, grp, parties, threshold, rand.Reader)
	}
	if err != nil {
		return fmt.Errorf("keygen: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for i, sk := range shares {
		kc := keychain.New(frostPoolCap)
		if err := kc.InsertPrivateKey(sk); err != nil {
			return fmt.Errorf("party %d: inserting generated key: %w", i+1, err)
		}
		data, err := kc.ToBytes()
		if err != nil {
			return fmt.Errorf("party %d: serializing keychain: %w", i+1, err)
		}
		path := filepath.Join(outputDir, "party-"+strconv.Itoa(i+1)+".keychain")
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("party %d: writing keychain file: %w", i+1, err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}
