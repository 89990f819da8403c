package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrSecretNotFound is returned when a provider has no value for a ref.
var ErrSecretNotFound = errors.New("secret not found")

// Provider looks up the value behind the key of a secretref. Name is the
// provider segment of the references it serves. Values must never be logged.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, key string) (string, error)
}

// EnvProvider resolves refs as environment variable names.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates an EnvProvider reading the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name returns "env".
func (p *EnvProvider) Name() string { return "env" }

// Resolve returns the value of the environment variable ref.
func (p *EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	v, ok := p.lookup(ref)
	if !ok {
		return "", fmt.Errorf("%w: env %s", ErrSecretNotFound, ref)
	}
	return v, nil
}

// FileProvider resolves refs as file names under a base directory. Trailing
// newlines are trimmed.
type FileProvider struct {
	dir string
}

// DefaultSecretsDir is where container runtimes mount secrets.
const DefaultSecretsDir = "/run/secrets"

// NewFileProvider creates a FileProvider rooted at dir, or DefaultSecretsDir
// when dir is empty.
func NewFileProvider(dir string) *FileProvider {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	return &FileProvider{dir: dir}
}

// Name returns "file".
func (p *FileProvider) Name() string { return "file" }

// Resolve reads the file ref. Refs may not escape the base directory.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	clean := filepath.Clean(ref)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("secret file ref %q escapes %s", ref, p.dir)
	}

	b, err := os.ReadFile(filepath.Join(p.dir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: file %s", ErrSecretNotFound, ref)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

var (
	_ Provider = (*EnvProvider)(nil)
	_ Provider = (*FileProvider)(nil)
)
