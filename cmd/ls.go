package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) lsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List entry names",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			it, err := s.v.Names()
			if err != nil {
				return err
			}
			defer it.Release()

			out := cmd.OutOrStdout()
			if !long {
				for name, ok := it.Next(); ok; name, ok = it.Next() {
					fmt.Fprintln(out, name)
				}
				return it.Err()
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tREVISION\tCREATED\tUPDATED")
			for name, ok := it.Next(); ok; name, ok = it.Next() {
				info, err := s.v.Info(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", info.Name, info.Revision,
					info.Created.Local().Format(time.DateTime), info.Updated.Local().Format(time.DateTime))
			}
			if err := it.Err(); err != nil {
				return err
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show revision and timestamps")
	return cmd
}
