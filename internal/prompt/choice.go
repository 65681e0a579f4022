package prompt

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// Choice shows a question and reads a single key. Outside a terminal it
// reads a line instead. The answer is lower-cased.
func Choice(question string) (string, error) {
	fmt.Fprint(os.Stderr, question)

	fd := int(os.Stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		var input string
		if _, err := fmt.Scanln(&input); err != nil {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(input)), nil
	}
	defer func() { _ = term.Restore(fd, state) }()

	buf := make([]byte, 1)
	if _, err := os.Stdin.Read(buf); err != nil {
		return "", err
	}
	choice := strings.ToLower(string(buf[0]))
	fmt.Fprintf(os.Stderr, "%s\r\n", choice)
	return choice, nil
}

// Confirm asks a yes/no question defaulting to no
func Confirm(question string) bool {
	choice, err := Choice(question + " [y/N]: ")
	return err == nil && choice == "y"
}
