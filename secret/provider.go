package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves a reference as an environment variable name.
type EnvProvider struct{}

// Name implements Provider.
func (EnvProvider) Name() string { return "env" }

// Resolve returns the variable's value; an unset variable is an error.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, ref)
	}
	return v, nil
}

// FileProvider resolves a reference as a file path, relative to Dir when set.
// Mounted secrets usually end in a newline, which is trimmed.
type FileProvider struct {
	Dir string
}

// Name implements Provider.
func (FileProvider) Name() string { return "file" }

// Resolve reads the file named by ref.
func (p FileProvider) Resolve(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := ref
	if p.Dir != "" && !filepath.IsAbs(ref) {
		path = filepath.Join(p.Dir, ref)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("secret: read %s: %w", path, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
