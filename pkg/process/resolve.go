package process

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Veraticus/claude-pty-notify/pkg/config"
)

// ClaudeBinary is the executable name searched for on PATH.
const ClaudeBinary = "claude"

// ResolutionError means no command could be determined for the child.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return "cannot resolve command: " + e.Reason
}

// Guidance returns the ways a user can point the wrapper at claude.
func (e *ResolutionError) Guidance() string {
	var b strings.Builder
	b.WriteString("You can fix this by:\n")
	b.WriteString("1. Passing the command explicitly: claude-pty-notify /path/to/claude [ARGS...]\n")
	b.WriteString("2. Setting CLAUDE_PATH or CLAUDE_CODE_PATH (or claude_path in ~/.config/claude-pty-notify/config.yaml)\n")
	b.WriteString("3. Ensuring the real claude is in your PATH\n")
	return b.String()
}

// Resolver turns CLI arguments into the child's command vector.
type Resolver struct {
	// ClaudePath is the configured binary, if any.
	ClaudePath string
	// DefaultArgs are prepended to user arguments for claude.
	DefaultArgs []string

	Getenv     func(string) string
	LookPath   func(string) (string, error)
	Executable func() (string, error)
}

// NewResolver creates a resolver from cfg using the process environment.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		ClaudePath:  cfg.ClaudePath,
		DefaultArgs: cfg.DefaultArgs,
		Getenv:      os.Getenv,
		LookPath:    exec.LookPath,
		Executable:  os.Executable,
	}
}

// Resolve returns the command vector. A first argument naming an
// executable other than this binary is run as given. Otherwise the
// arguments go to claude, located through the configured path,
// CLAUDE_PATH, CLAUDE_CODE_PATH, then PATH.
func (r *Resolver) Resolve(args []string) ([]string, error) {
	self := r.self()

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if path, err := r.LookPath(args[0]); err == nil {
			if !samePath(path, self) {
				if filepath.Base(path) == ClaudeBinary {
					return r.claudeCommand(path, args[1:]), nil
				}
				return append([]string{path}, args[1:]...), nil
			}
			args = args[1:]
		}
	}

	claude := r.ClaudePath
	if claude == "" {
		claude = r.Getenv("CLAUDE_PATH")
	}
	if claude == "" {
		claude = r.Getenv("CLAUDE_CODE_PATH")
	}
	if claude == "" {
		found, err := r.findClaude(self)
		if err != nil {
			return nil, &ResolutionError{Reason: err.Error()}
		}
		claude = found
	}

	return r.claudeCommand(claude, args), nil
}

// claudeCommand runs claude with the default args ahead of args.
func (r *Resolver) claudeCommand(claude string, args []string) []string {
	cmd := make([]string, 0, 1+len(r.DefaultArgs)+len(args))
	cmd = append(cmd, claude)
	cmd = append(cmd, r.DefaultArgs...)
	cmd = append(cmd, args...)
	return cmd
}

// findClaude searches PATH for claude, skipping this binary.
func (r *Resolver) findClaude(self string) (string, error) {
	pathEnv := r.Getenv("PATH")
	if pathEnv == "" {
		return "", fmt.Errorf("PATH environment variable is empty")
	}

	for _, dir := range filepath.SplitList(pathEnv) {
		claudePath := filepath.Join(dir, ClaudeBinary)

		info, err := os.Stat(claudePath)
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() || info.Mode()&0o111 == 0 {
			continue
		}
		if samePath(claudePath, self) {
			continue
		}
		return claudePath, nil
	}

	return "", fmt.Errorf("claude not found in PATH (excluding the claude-pty-notify wrapper)")
}

func (r *Resolver) self() string {
	if r.Executable == nil {
		return ""
	}
	path, err := r.Executable()
	if err != nil {
		return ""
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// samePath reports whether path resolves to self.
func samePath(path, self string) bool {
	if self == "" {
		return false
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	return resolved == self
}
