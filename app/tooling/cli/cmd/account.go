package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

func newAccountCmd(opts *options) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the keys miners are paid to in coinbase rounds",
	}

	generateCmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate a new key pair for the named miner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(opts.accountPath, 0o755); err != nil {
				return err
			}

			path := keyPath(opts.accountPath, args[0])
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("key %s already exists", path)
			}

			privateKey, err := crypto.GenerateKey()
			if err != nil {
				return err
			}

			if err := crypto.SaveECDSA(path, privateKey); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
			return nil
		},
	}

	addressCmd := &cobra.Command{
		Use:   "address <name>",
		Short: "Print the reward address of the named miner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			privateKey, err := crypto.LoadECDSA(keyPath(opts.accountPath, args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
			return nil
		},
	}

	accountCmd.AddCommand(generateCmd, addressCmd)

	return accountCmd
}
