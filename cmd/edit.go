package cmd

import (
	"bytes"
	"fmt"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/prompt"
	"github.com/spf13/cobra"
)

func (a *app) editCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit NAME",
		Short: "Edit an entry in $EDITOR",
		Long: `Edit an entry in $VISUAL or $EDITOR. A missing entry starts empty.
The temporary file is overwritten and removed afterwards.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			var current []byte
			if s.v.Has(name) {
				buf, err := s.v.Get(name)
				if err != nil {
					return err
				}
				defer buf.Destroy()
				current = buf.Bytes()
			}

			edited, err := prompt.Edit(current, "passvault-*")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(edited)

			if bytes.Equal(current, edited) && s.v.Has(name) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No changes")
				return nil
			}
			if err := s.v.Put(name, edited); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", name)
			return nil
		},
	}
}
