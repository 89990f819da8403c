package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jonwraymond/postboard/secret"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "POSTBOARD_"

// PathEnvVar overrides the config file location.
const PathEnvVar = EnvPrefix + "CONFIG"

// DefaultPaths are searched in order when no path is given.
var DefaultPaths = []string{
	"postboard.yaml",
	"postboard.yml",
	"/etc/postboard/config.yaml",
}

// ErrInvalid wraps validation failures.
var ErrInvalid = errors.New("config: invalid configuration")

// Load builds the configuration from defaults, the YAML file at path (or the
// first of PathEnvVar and DefaultPaths that exists) and the environment,
// resolves secret fields and validates the result.
func Load(ctx context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = findFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.ResolveSecrets(ctx, secret.NewDefaultResolver(cfg.Secrets.Dir)); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveSecrets expands secret references in the auth secret and the store
// encryption key.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	err := r.ResolveFields(ctx, map[string]*string{
		"auth.secret":          &c.Auth.Secret,
		"store.encryption_key": &c.Store.EncryptionKey,
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Never echo values: some fields are secrets.
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Short names for the variables operators set most often.
var envAliases = map[string]string{
	"addr":       "server.addr",
	"jwt_secret": "auth.secret",
	"data_dir":   "store.path",
	"log_level":  "observe.log_level",
	"log_format": "observe.log_format",
}

// envKey maps POSTBOARD_SECTION__FIELD_NAME to section.field_name and
// applies envAliases. The config path variable itself is dropped.
func envKey(key string) string {
	if key == PathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if alias, ok := envAliases[key]; ok {
		return alias
	}
	return strings.ReplaceAll(key, "__", ".")
}

var listKeys = []string{
	"server.cors_origins",
}

// splitLists turns comma separated strings from the environment into lists.
func splitLists(k *koanf.Koanf) error {
	for _, key := range listKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(key, out); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return nil
}
