package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/illarion/passvault/internal/security"
	"github.com/spf13/cobra"
)

func (a *app) getCmd() *cobra.Command {
	var (
		output string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print an entry or write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			payload, err := s.v.Get(args[0])
			if err != nil {
				return err
			}
			defer payload.Destroy()

			if output == "" {
				_, err := cmd.OutOrStdout().Write(payload.Bytes())
				return err
			}

			wd, err := security.Open(".")
			if err != nil {
				return err
			}
			defer wd.Close()

			if err := wd.WriteFile(output, payload.Bytes(), force); err != nil {
				if errors.Is(err, os.ErrExist) {
					return fmt.Errorf("%s: %w", output, os.ErrExist)
				}
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%s)\n", output, formatSize(int64(payload.Len())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file in the current directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing output file")
	return cmd
}
