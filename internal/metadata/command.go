package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/On-Jun9/MetaProbe/pkg/types"
)

// Command is an external tool invocation as an argument list. It is never run through a shell.
type Command struct {
	Path string
	Args []string
}

// Argv returns the executable followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// String renders the equivalent shell command line. The executable is emitted as is and
// every argument is quoted with EscapeShellArg.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Path)
	for _, arg := range c.Args {
		parts = append(parts, EscapeShellArg(arg))
	}
	return strings.Join(parts, " ")
}

// EscapeShellArg quotes s for a POSIX shell: wrapped in single quotes, with every
// embedded single quote written as '\''.
func EscapeShellArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// requireExecutable resolves path to an absolute file name and checks that it names an
// existing regular file.
func requireExecutable(backend types.BackendName, setting, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", &ConfigurationError{
			Backend: backend,
			Setting: setting,
			Message: fmt.Sprintf("No path configured for %s (%s)", backend, setting),
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", &ConfigurationError{
			Backend: backend,
			Setting: setting,
			Message: fmt.Sprintf("Invalid path or filename for %s: %s", backend, path),
		}
	}

	return abs, nil
}

func runCommand(ctx context.Context, c Command) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = time.Second

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// runTool runs c under timeout and parses its stdout.
//
// Exit status policy: a non-zero exit is tolerated as long as stdout parses into at least
// one entry; a non-zero exit with no parsed entries is an ExtractionError carrying stderr.
// Whatever was parsed is returned alongside any error.
func runTool(ctx context.Context, timeout time.Duration, backend types.BackendName, file string, c Command, parse func([]byte) (*types.Tree, error)) (*types.Tree, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, runErr := runCommand(ctx, c)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			ctxErr = fmt.Errorf("%s did not finish within %s: %w", filepath.Base(c.Path), timeout, ctxErr)
		}
		return types.NewTree(), &ExtractionError{Backend: backend, Path: file, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		return types.NewTree(), &ExtractionError{Backend: backend, Path: file, Err: runErr}
	}

	tree, parseErr := parse(stdout)
	if tree == nil {
		tree = types.NewTree()
	}
	if parseErr != nil {
		if runErr != nil {
			parseErr = fmt.Errorf("%w (%v%s)", parseErr, runErr, stderrSuffix(stderr))
		}
		return tree, &ExtractionError{Backend: backend, Path: file, Err: parseErr}
	}

	if runErr != nil && tree.Len() == 0 {
		return tree, &ExtractionError{
			Backend: backend,
			Path:    file,
			Err:     fmt.Errorf("%w%s", runErr, stderrSuffix(stderr)),
		}
	}

	return tree, nil
}

func stderrSuffix(stderr []byte) string {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return ""
	}
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return ": " + msg
}
