package cmd

import (
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/keyring"
	"github.com/spf13/cobra"
)

func (a *app) passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the vault password",
		Long: `Change the vault password. The vault is rewritten under the new keys
into a temporary file which then replaces the original. The new password
is read from PASSVAULT_NEW_PASSWORD or a prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			oldID := s.v.ID()

			password, _, err := a.newPassword(cmd, "new.password")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			outer, entries, err := a.keys(password, s.name)
			if err != nil {
				return err
			}

			path := a.path()
			tmp := path + ".rekey"
			if err := s.v.Rekey(tmp, outer, entries); err != nil {
				return err
			}
			if err := s.Close(); err != nil {
				os.Remove(tmp)
				return err
			}
			if err := os.Rename(tmp, path); err != nil {
				os.Remove(tmp)
				return fmt.Errorf("failed to replace vault: %w", err)
			}

			meta, err := a.inspect(path)
			if err != nil {
				return err
			}
			if keyring.Has(oldID, s.name) {
				_ = keyring.Delete(oldID, s.name)
				if err := keyring.Save(meta.ID, s.name, password); err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Keyring updated with new password")
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Password changed")
			return nil
		},
	}
}
