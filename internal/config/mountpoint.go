package config

import (
	"os"
	"strings"

	"git.home.luguber.info/inful/mountrewrite/internal/mountpoint"
)

// EnvMountPoint is the environment variable the documentation build sets.
// Set to the empty string it still enables rewriting.
const EnvMountPoint = "ELM_DOC_MOUNT_POINT"

const defaultHrefCallee = mountpoint.DefaultHrefCallee

// MountPointSource records where the resolved mount point came from.
type MountPointSource string

const (
	SourceFlag   MountPointSource = "flag"
	SourceEnv    MountPointSource = "env"
	SourceConfig MountPointSource = "config"
	SourceNone   MountPointSource = "none"
)

// ResolveMountPoint picks the mount point by precedence: flag, then
// ELM_DOC_MOUNT_POINT, then the config file. A nil flag means not given.
// The environment value is used verbatim, as the documentation build passes
// it; flag and file values are normalized.
func ResolveMountPoint(flag *string, cfg *Config) (mountpoint.MountPoint, MountPointSource) {
	if flag != nil {
		return mountpoint.At(NormalizeMountPoint(*flag)), SourceFlag
	}
	if v, ok := os.LookupEnv(EnvMountPoint); ok {
		return mountpoint.At(v), SourceEnv
	}
	if cfg != nil && cfg.MountPoint != nil {
		return mountpoint.At(NormalizeMountPoint(*cfg.MountPoint)), SourceConfig
	}
	return mountpoint.Unset(), SourceNone
}

// NormalizeMountPoint trims surrounding whitespace and trailing slashes, so
// "/docs/" and "/docs" prefix identically and "/" means the site root.
func NormalizeMountPoint(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), "/")
}
