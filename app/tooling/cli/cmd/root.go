// Package cmd contains the demochain command line tool.
package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const keyExtension = ".ecdsa"

// options holds the flags shared by every command.
type options struct {
	url         string
	accountPath string
}

// NewRootCmd constructs the root command with every sub command attached.
func NewRootCmd() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:          "demochain",
		Short:        "Run proof of work races on a demochain node",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.url, "url", "u", "http://localhost:8080", "Url of the node.")
	rootCmd.PersistentFlags().StringVarP(&opts.accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")

	rootCmd.AddCommand(
		newAccountCmd(&opts),
		newRoundCmd(&opts),
		newStatusCmd(&opts),
		newChainCmd(&opts),
		newMineCmd(),
	)

	return rootCmd
}

func keyPath(dir string, name string) string {
	if !strings.HasSuffix(name, keyExtension) {
		name += keyExtension
	}

	return filepath.Join(dir, name)
}
