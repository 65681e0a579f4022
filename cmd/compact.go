package cmd

import (
	"fmt"

	"github.com/illarion/passvault/internal/vault"
	"github.com/spf13/cobra"
)

func (a *app) compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim unused space in the vault file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path()
			before, err := a.inspect(path)
			if err != nil {
				return err
			}
			if err := vault.CompactFile(path, a.vaultOptions()...); err != nil {
				return err
			}
			after, err := a.inspect(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Compacted: %s -> %s\n", formatSize(before.Size), formatSize(after.Size))
			return nil
		},
	}
}
