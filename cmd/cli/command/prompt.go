package command

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// readPassword reads a password from the terminal without echo, asking twice when confirm is set.
func readPassword(prompt string, confirm bool) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("no terminal to prompt for a password; pass --password")
	}
	fmt.Fprint(os.Stderr, prompt)
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	password := strings.TrimSpace(string(first))
	if !confirm {
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if password != strings.TrimSpace(string(second)) {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}
