package cmd

import (
	"fmt"

	"github.com/illarion/passvault/internal/vault"
	"github.com/spf13/cobra"
)

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME...",
		Short: "Remove entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}

			removed := 0
			for _, name := range args {
				if err := s.v.Remove(name); err != nil {
					s.Close()
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %s\n", name)
				removed++
			}
			if err := s.Close(); err != nil {
				return err
			}

			if removed > 0 {
				if err := vault.CompactFile(a.path(), a.vaultOptions()...); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: compaction failed: %s\n", err)
				}
			}
			return nil
		},
	}
}
