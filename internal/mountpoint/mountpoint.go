package mountpoint

// MountPoint is the URL path prefix the site is served under. The zero value
// is unset, which disables rewriting entirely. An empty but set mount point is
// valid and still parses the input.
type MountPoint struct {
	value string
	set   bool
}

// Unset returns a mount point that disables rewriting.
func Unset() MountPoint { return MountPoint{} }

// At returns a set mount point with the given prefix, used verbatim.
func At(value string) MountPoint { return MountPoint{value: value, set: true} }

// Value returns the prefix and whether it is set.
func (m MountPoint) Value() (string, bool) { return m.value, m.set }

// IsSet reports whether rewriting is enabled.
func (m MountPoint) IsSet() bool { return m.set }

func (m MountPoint) String() string {
	if !m.set {
		return "<unset>"
	}
	return m.value
}
