package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/algointent/walletcore/internal/service/approval"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Prompt hooks, replaced in tests.
//
//nolint:gochecknoglobals // Test seams for interactive input
var (
	promptPasswordFn    = promptPassword
	promptNewPasswordFn = promptNewPassword
	promptMnemonicFn    = promptMnemonic
	promptConfirmFn     = promptConfirm
)

// out is a helper for CLI output that ignores write errors (standard pattern for CLI tools).
func out(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// outln is a helper for CLI output with newline.
func outln(w io.Writer, args ...any) {
	_, _ = fmt.Fprintln(w, args...)
}

// readHidden reads one line without echo when stdin is a terminal.
func readHidden(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)
	fd := int(os.Stdin.Fd()) //nolint:gosec // G115: Fd() returns uintptr, safe conversion for term.ReadPassword
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		outln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// promptPassword asks for the wallet password with hidden input.
func promptPassword(prompt string) (string, error) {
	return readHidden(prompt)
}

// promptNewPassword asks for a new password twice.
func promptNewPassword() (string, error) {
	pw, err := promptPasswordFn("Choose a wallet password: ")
	if err != nil {
		return "", err
	}
	confirm, err := promptPasswordFn("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", walleterr.WithSuggestion(walleterr.ErrWeakPassword, "passwords do not match")
	}
	return pw, nil
}

// promptMnemonic reads the 25-word secret phrase without echo.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter your 25-word secret phrase on one line.")
	return readHidden("Secret phrase: ")
}

// promptConfirm asks a yes/no question, defaulting to no.
func promptConfirm(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// interactiveApproval shows the summary, asks for confirmation and then
// the password. Declining abandons the operation.
func interactiveApproval(w io.Writer) approval.Prompt {
	return func(_ context.Context, summary approval.Summary) (string, error) {
		outln(w, summary.String())
		outln(w)
		if !promptConfirmFn("Sign and submit?") {
			return "", walleterr.WithDetails(walleterr.ErrOperationRejected, map[string]string{"reason": "declined"})
		}
		return promptPasswordFn("Wallet password: ")
	}
}
