package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/illarion/passvault/internal/git"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/spf13/cobra"
)

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show vault metadata without a password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.path()
			meta, err := a.inspect(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Vault:    %s\n", meta.Path)
			fmt.Fprintf(out, "ID:       %s\n", meta.ID)
			fmt.Fprintf(out, "Format:   %d\n", meta.Format)
			fmt.Fprintf(out, "Entries:  %d\n", meta.Records)
			fmt.Fprintf(out, "Size:     %s\n", formatSize(meta.Size))
			fmt.Fprintf(out, "Created:  %s\n", meta.Created.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Modified: %s\n", meta.Modified.Local().Format(time.RFC3339))

			if name, err := a.userName(); err == nil {
				stored := "not stored"
				if keyring.Has(meta.ID, name) {
					stored = "stored in keyring"
				}
				fmt.Fprintf(out, "Password: %s\n", stored)
			}

			status, err := git.Check(path)
			if err != nil {
				a.log.WithError(err).Debug("git check failed")
				return nil
			}
			fmt.Fprint(out, git.Format(filepath.Base(path), status))
			return nil
		},
	}
}
