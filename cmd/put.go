package cmd

import (
	"fmt"
	"io"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/prompt"
	"github.com/illarion/passvault/internal/security"
	"github.com/spf13/cobra"
)

func (a *app) putCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "put NAME",
		Short: "Store an entry, replacing any previous value",
		Long: `Store an entry. The value is read from --input, from standard input,
or from a hidden prompt when standard input is a terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := a.readPayload(cmd, input)
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(payload)

			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			replaced := s.v.Has(args[0])
			if err := s.v.Put(args[0], payload); err != nil {
				return err
			}
			if replaced {
				fmt.Fprintf(cmd.ErrOrStderr(), "Updated %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.ErrOrStderr(), "Added %s\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "read value from file in the current directory")
	return cmd
}

func (a *app) readPayload(cmd *cobra.Command, input string) ([]byte, error) {
	if input != "" {
		wd, err := security.Open(".")
		if err != nil {
			return nil, err
		}
		defer wd.Close()
		return wd.ReadFile(input)
	}

	in := cmd.InOrStdin()
	if prompt.IsTerminal(in) {
		return prompt.Password("Value: ")
	}
	return io.ReadAll(in)
}
