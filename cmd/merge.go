package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/illarion/passvault/internal/crypto"
	"github.com/illarion/passvault/internal/prompt"
	"github.com/illarion/passvault/internal/textdiff"
	"github.com/illarion/passvault/internal/vault"
	"github.com/spf13/cobra"
)

var errSameVault = errors.New("cannot merge a vault into itself")

func (a *app) mergeCmd() *cobra.Command {
	var (
		showDiff  bool
		resolve   bool
		otherName string
	)

	cmd := &cobra.Command{
		Use:   "merge OTHER",
		Short: "Copy entries missing here from another vault",
		Long: `Copy entries that exist only in OTHER into this vault. Entries present
in both are reported as newer or older and left alone, unless --resolve
is given.

The password for OTHER is read from PASSVAULT_OTHER_PASSWORD, the keyring
or a prompt.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			same, err := samePath(a.path(), args[0])
			if err != nil {
				return err
			}
			if same {
				return errSameVault
			}

			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			name := otherName
			if name == "" {
				name = s.name
			}
			other, err := a.openPath(cmd, args[0], name, "other.password", "Password for "+args[0]+": ")
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			defer other.Close()

			results, err := vault.Merge(s.v, other.v)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.Outcome == vault.Failed {
					failed++
					fmt.Fprintf(out, "%-7s %s: %s\n", r.Outcome, r.Name, r.Err)
					continue
				}
				if r.Outcome == vault.Added {
					fmt.Fprintf(out, "%-7s %s\n", r.Outcome, r.Name)
					continue
				}

				differs, err := a.compareEntry(out, s.v, other.v, r.Name, args[0], showDiff)
				if err != nil {
					return err
				}
				if !differs {
					continue
				}
				fmt.Fprintf(out, "%-7s %s\n", r.Outcome, r.Name)
				if resolve {
					if err := resolveEntry(cmd, s.v, other.v, r.Name, args[0]); err != nil {
						return err
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d entries could not be merged", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDiff, "diff", false, "show differences of entries present in both vaults")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "interactively resolve entries that differ")
	cmd.Flags().StringVar(&otherName, "other-name", "", "user name for OTHER (default is --name)")
	return cmd
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return absA == absB, nil
}

// compareEntry reports whether an entry differs between the vaults,
// printing a diff when asked
func (a *app) compareEntry(out io.Writer, ours, theirs *vault.Vault, name, label string, showDiff bool) (bool, error) {
	mine, err := ours.Get(name)
	if err != nil {
		return false, err
	}
	defer mine.Destroy()
	other, err := theirs.Get(name)
	if err != nil {
		return false, err
	}
	defer other.Destroy()

	if textdiff.Equal(mine.Bytes(), other.Bytes()) {
		return false, nil
	}
	if showDiff {
		fmt.Fprint(out, textdiff.Unified(name, mine.Bytes(), other.Bytes(), "vault", label))
	}
	return true, nil
}

func resolveEntry(cmd *cobra.Command, ours, theirs *vault.Vault, name, label string) error {
	mine, err := ours.Get(name)
	if err != nil {
		return err
	}
	defer mine.Destroy()
	other, err := theirs.Get(name)
	if err != nil {
		return err
	}
	defer other.Destroy()

	text := textdiff.IsText(mine.Bytes()) && textdiff.IsText(other.Bytes())
	question := fmt.Sprintf("%s: [k]eep, [t]ake theirs", name)
	if text {
		question += ", [e]dit"
	}
	question += "? "

	for {
		choice, err := prompt.Choice(question)
		if err != nil {
			return err
		}
		switch {
		case choice == "k" || choice == "":
			return nil
		case choice == "t":
			if err := ours.Put(name, other.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Took %s from %s\n", name, label)
			return nil
		case choice == "e" && text:
			merged := textdiff.Conflict(mine.Bytes(), other.Bytes(), "vault", label)
			edited, err := prompt.Edit(merged, "passvault-merge-*")
			crypto.ClearBytes(merged)
			if err != nil {
				return err
			}
			if textdiff.HasMarkers(edited) {
				crypto.ClearBytes(edited)
				fmt.Fprintln(cmd.ErrOrStderr(), "Conflict markers remain, try again")
				continue
			}
			err = ours.Put(name, edited)
			crypto.ClearBytes(edited)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved merged %s\n", name)
			return nil
		}
	}
}
