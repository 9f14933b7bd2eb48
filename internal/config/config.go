package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/retry"
)

// DefaultConfigFile is read when no --config flag is given. Its absence is not an error.
const DefaultConfigFile = "mountrewrite.yaml"

// Config represents the application configuration.
type Config struct {
	// MountPoint is nil when the file does not set it, which keeps
	// "unset" distinct from an explicit empty prefix.
	MountPoint  *string       `yaml:"mount_point,omitempty"`
	HrefCallee  string        `yaml:"href_callee,omitempty"`
	Extensions  []string      `yaml:"extensions,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	Assets      AssetsConfig  `yaml:"assets,omitempty"`
	Metrics     MetricsConfig `yaml:"metrics,omitempty"`
	Retry       RetryConfig   `yaml:"retry,omitempty"`
}

// AssetsConfig selects the compressed assets rewritten by the assets command.
type AssetsConfig struct {
	Patterns []string `yaml:"patterns,omitempty"`
}

// RetryConfig controls retries of transient output write failures.
type RetryConfig struct {
	Backoff    retry.BackoffMode `yaml:"backoff,omitempty"`
	Initial    time.Duration     `yaml:"initial,omitempty"`
	Max        time.Duration     `yaml:"max,omitempty"`
	MaxRetries *int              `yaml:"max_retries,omitempty"`
}

// Policy converts the section into a retry.Policy; unset fields take the defaults.
func (r RetryConfig) Policy() retry.Policy {
	maxRetries := -1
	if r.MaxRetries != nil {
		maxRetries = *r.MaxRetries
	}
	return retry.NewPolicy(r.Backoff, r.Initial, r.Max, maxRetries)
}

// MetricsConfig configures the Prometheus textfile written after a run.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// braceEnvVar matches ${VAR}. Bare $VAR is left alone because compiled Elm
// identifiers such as _elm_lang$html$Html_Attributes$href contain '$'.
var braceEnvVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(s string) string {
	return braceEnvVar.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}

// Load loads configuration from path. When explicit is false a missing file
// yields the defaults; an explicitly named file must exist.
func Load(path string, explicit bool) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandEnv(string(data))), cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
				WithContext("path", path).
				Fatal().
				Build()
		}
	case os.IsNotExist(err) && !explicit:
		// defaults only
	case os.IsNotExist(err):
		return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).
			WithContext("path", path).
			Build()
	default:
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
			WithContext("path", path).
			Build()
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HrefCallee == "" {
		c.HrefCallee = defaultHrefCallee
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".js"}
	}
	if c.Concurrency == 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if len(c.Assets.Patterns) == 0 {
		c.Assets.Patterns = []string{"*.css.gz"}
	}
}

// Default returns a configuration with only defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Init writes an example configuration file.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o600); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}

const exampleConfig = `# mountrewrite configuration
#
# URL path the documentation is served under. The ELM_DOC_MOUNT_POINT
# environment variable and the --mount-at flag take precedence.
# Leave unset to make every command a no-op.
# mount_point: /docs

# Identifier the compiler emits for Html.Attributes.href.
href_callee: _elm_lang$html$Html_Attributes$href

# Artifact file extensions picked up when a directory is given.
extensions: [".js"]

# Files rewritten in parallel.
concurrency: 4

assets:
  patterns: ["*.css.gz"]

# Retries for transient output write failures.
retry:
  backoff: linear
  initial: 50ms
  max: 1s
  max_retries: 2

# metrics:
#   textfile: /var/lib/node_exporter/mountrewrite.prom
`
