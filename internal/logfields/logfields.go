package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyMountPoint = "mount_point"
	KeyFile       = "file"
	KeyPath       = "path"
	KeyStage      = "stage"
	KeyLiterals   = "literals"
	KeyHrefs      = "hrefs"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Literals(n int) slog.Attr        { return slog.Int(KeyLiterals, n) }
func Hrefs(n int) slog.Attr           { return slog.Int(KeyHrefs, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// MountPoint logs the configured prefix; unset mount points log as "<unset>".
func MountPoint(value string, set bool) slog.Attr {
	if !set {
		return slog.String(KeyMountPoint, "<unset>")
	}
	return slog.String(KeyMountPoint, value)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
