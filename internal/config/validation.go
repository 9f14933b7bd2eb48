package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	ferrors "git.home.luguber.info/inful/mountrewrite/internal/foundation/errors"
	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
	"git.home.luguber.info/inful/mountrewrite/internal/retry"
)

var jsIdentifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return invalid("concurrency must be at least 1", "concurrency", c.Concurrency)
	}
	if !jsIdentifier.MatchString(c.HrefCallee) {
		return invalid("href_callee must be a plain JavaScript identifier", "href_callee", c.HrefCallee)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return invalid(fmt.Sprintf("extension %q must start with a dot", ext), "extensions", c.Extensions)
		}
	}
	for _, p := range c.Assets.Patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return invalid(fmt.Sprintf("invalid asset pattern %q", p), "assets.patterns", c.Assets.Patterns)
		}
	}
	if c.Retry.Backoff != "" && !retry.IsValidMode(c.Retry.Backoff) {
		return invalid(fmt.Sprintf("unknown retry backoff %q", c.Retry.Backoff), "retry.backoff", c.Retry.Backoff)
	}
	if c.Retry.MaxRetries != nil && *c.Retry.MaxRetries < 0 {
		return invalid("retry.max_retries cannot be negative", "retry.max_retries", *c.Retry.MaxRetries)
	}
	return nil
}

func invalid(msg, key string, value any) error {
	return ferrors.ValidationError(msg).WithContext(key, value).Build()
}

// MountPointWarnings returns non-fatal problems with a resolved mount point.
func MountPointWarnings(mp mountpoint.MountPoint) []string {
	v, ok := mp.Value()
	if !ok || v == "" {
		return nil
	}
	var warnings []string
	if !strings.HasPrefix(v, "/") {
		warnings = append(warnings, "mount point does not start with '/'; rewritten paths will be relative")
	}
	if strings.ContainsAny(v, "?#") {
		warnings = append(warnings, "mount point contains a query or fragment delimiter")
	}
	return warnings
}
