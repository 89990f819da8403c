package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// RefPrefix marks a config value that names a secret instead of holding it.
const RefPrefix = "secretref:"

// Ref is a parsed secretref:<provider>:<key> reference.
type Ref struct {
	Provider string
	Key      string
}

func (r Ref) String() string { return RefPrefix + r.Provider + ":" + r.Key }

// ParseRef parses a value that is exactly one secret reference.
func ParseRef(value string) (Ref, bool) {
	rest, ok := strings.CutPrefix(value, RefPrefix)
	if !ok {
		return Ref{}, false
	}
	provider, key, ok := strings.Cut(rest, ":")
	if !ok || provider == "" || key == "" {
		return Ref{}, false
	}
	return Ref{Provider: provider, Key: key}, true
}

// Resolver turns config values into their final form: ${VAR} is expanded,
// then every secret reference is replaced by the value its provider returns.
//
// A strict Resolver rejects references that resolve to "".
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver over providers. Nil providers are skipped.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NewDefaultResolver creates a strict resolver with the env provider and a
// file provider rooted at secretsDir.
func NewDefaultResolver(secretsDir string) *Resolver {
	return NewResolver(true, NewEnvProvider(), NewFileProvider(secretsDir))
}

// Register adds or replaces the provider under its Name.
func (r *Resolver) Register(p Provider) {
	if p == nil {
		return
	}
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[p.Name()] = p
}

// ResolveValue expands and resolves a single value. A nil Resolver only
// expands environment variables.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnv(value)
	if err != nil || r == nil {
		return expanded, err
	}
	if ref, ok := ParseRef(expanded); ok {
		return r.lookup(ctx, ref)
	}
	return r.replaceInline(ctx, expanded)
}

// ResolveFields resolves each string pointed to in fields in place. Keys
// name the fields in errors and never carry secret values.
func (r *Resolver) ResolveFields(ctx context.Context, fields map[string]*string) error {
	for name, ptr := range fields {
		if ptr == nil || *ptr == "" {
			continue
		}
		out, err := r.ResolveValue(ctx, *ptr)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", name, err)
		}
		*ptr = out
	}
	return nil
}

func (r *Resolver) lookup(ctx context.Context, ref Ref) (string, error) {
	p, ok := r.providers[ref.Provider]
	if !ok {
		return "", fmt.Errorf("secret provider %q is not registered", ref.Provider)
	}
	v, err := p.Resolve(ctx, ref.Key)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("secret provider %q returned empty value", ref.Provider)
	}
	return v, nil
}

var inlineRef = regexp.MustCompile(`secretref:([^:\s]+):(\S+)`)

// replaceInline resolves references embedded in a longer value, such as
// "Bearer secretref:env:TOKEN".
func (r *Resolver) replaceInline(ctx context.Context, value string) (string, error) {
	var errs []error
	out := inlineRef.ReplaceAllStringFunc(value, func(m string) string {
		sub := inlineRef.FindStringSubmatch(m)
		v, err := r.lookup(ctx, Ref{Provider: sub[1], Key: sub[2]})
		if err != nil {
			errs = append(errs, err)
			return m
		}
		return v
	})
	if err := errors.Join(errs...); err != nil {
		return "", err
	}
	return out, nil
}
