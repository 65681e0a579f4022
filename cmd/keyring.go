package cmd

import (
	"errors"
	"fmt"

	"github.com/illarion/passvault/internal/keyring"
	"github.com/spf13/cobra"
)

func (a *app) keyringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage the vault password in the OS keyring",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Verify the password and store it in the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				s, err := a.open(cmd)
				if err != nil {
					return err
				}
				defer s.Close()

				if err := keyring.Save(s.v.ID(), s.name, s.password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password saved to keyring")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete",
			Short: "Remove the password from the keyring",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				id, name, err := a.keyringAccount()
				if err != nil {
					return err
				}
				if err := keyring.Delete(id, name); err != nil {
					if errors.Is(err, keyring.ErrNotStored) {
						fmt.Fprintln(cmd.OutOrStdout(), "No password stored in keyring")
						return nil
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Password removed from keyring")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether a password is stored",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				id, name, err := a.keyringAccount()
				if err != nil {
					return err
				}
				if keyring.Has(id, name) {
					fmt.Fprintln(cmd.OutOrStdout(), "Password: stored in keyring")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Password: not stored")
				}
				return nil
			},
		},
	)
	return cmd
}

func (a *app) keyringAccount() (string, string, error) {
	name, err := a.userName()
	if err != nil {
		return "", "", err
	}
	meta, err := a.inspect(a.path())
	if err != nil {
		return "", "", err
	}
	return meta.ID, name, nil
}
