package cmd

import (
	"errors"
	"fmt"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/vault"
	"github.com/spf13/cobra"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new empty vault",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, err := a.userName()
			if err != nil {
				return err
			}
			password, source, err := a.newPassword(cmd, "password")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			outer, entries, err := a.keys(password, name)
			if err != nil {
				return err
			}
			v, err := vault.Create(outer, entries, a.vaultOptions()...)
			if err != nil {
				outer.Destroy()
				entries.Destroy()
				return err
			}
			defer v.Close()

			path := a.path()
			if err := v.SaveAs(path); err != nil {
				if errors.Is(err, vault.ErrAlreadyExists) {
					return fmt.Errorf("%s already exists", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", path)

			a.offerKeyring(cmd, v.ID(), name, password, source)
			return nil
		},
	}
}
