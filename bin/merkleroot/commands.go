package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lijianying10/lnlgateway/pkgs/merkle"
	"github.com/lijianying10/lnlgateway/pkgs/wallet"
	"github.com/lijianying10/lnlgateway/pkgs/whitelist"
)

type options struct {
	file         string
	skipValidate bool
	address      string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "merkleroot [address...]",
		Short:        "Print the whitelist Merkle root",
		Long:         "merkleroot sorts the whitelist addresses and prints the keccak256 Merkle root used by the mint program.",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := loadAddresses(opts, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printRoot(cmd.OutOrStdout(), addresses)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "whitelist file (text, JSON or YAML list)")
	cmd.PersistentFlags().BoolVar(&opts.skipValidate, "skip-validate", false, "do not require Solana addresses")

	proofCmd := &cobra.Command{
		Use:   "proof [address...]",
		Short: "Print the Merkle proof for one whitelist address",
		RunE: func(cmd *cobra.Command, args []string) error {
			addresses, err := loadAddresses(opts, args, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return printProof(cmd.OutOrStdout(), addresses, opts.address)
		},
	}
	proofCmd.Flags().StringVarP(&opts.address, "address", "a", "", "address to prove")
	_ = proofCmd.MarkFlagRequired("address")
	cmd.AddCommand(proofCmd)
	return cmd
}

// loadAddresses merges the file and argument addresses, checks them and
// returns them sorted.
func loadAddresses(opts *options, args []string, stderr io.Writer) ([]string, error) {
	var addresses []string
	if opts.file != "" {
		list, err := whitelist.Load(opts.file)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, list...)
	}
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			addresses = append(addresses, a)
		}
	}
	if len(addresses) == 0 {
		return nil, errors.New("no addresses given, pass them as arguments or with --file")
	}
	if !opts.skipValidate {
		var bad []string
		for _, a := range addresses {
			if !wallet.IsSolana(a) {
				bad = append(bad, a)
			}
		}
		if len(bad) > 0 {
			return nil, fmt.Errorf("invalid solana addresses: %s", strings.Join(bad, ", "))
		}
	}
	sorted := merkle.SortAddresses(addresses)
	if dups := merkle.Duplicates(sorted); len(dups) > 0 {
		fmt.Fprintf(stderr, "warning: duplicate addresses: %s\n", strings.Join(dups, ", "))
	}
	return sorted, nil
}

func printRoot(w io.Writer, addresses []string) error {
	tree := merkle.FromStrings(addresses)
	_, err := fmt.Fprintf(w, "MERKLE ROOT (hex):\n%s\n", tree.RootHex())
	return err
}

func printProof(w io.Writer, addresses []string, address string) error {
	address = strings.TrimSpace(address)
	tree := merkle.FromStrings(addresses)
	proof, err := tree.ProofFor([]byte(address))
	if err != nil {
		return fmt.Errorf("%s: %w", address, err)
	}
	for _, p := range proof {
		if _, err := fmt.Fprintln(w, hex.EncodeToString(p)); err != nil {
			return err
		}
	}
	return nil
}
