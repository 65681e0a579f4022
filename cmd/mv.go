package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) mvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv OLD NEW",
		Short: "Rename an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.v.Rename(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Renamed %s to %s\n", args[0], args[1])
			return nil
		},
	}
}
