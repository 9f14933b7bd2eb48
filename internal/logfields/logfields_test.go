package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "0b6c", RunID("0b6c")},
		{"File", KeyFile, "Page-Search.js", File("Page-Search.js")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Stage", KeyStage, "rewrite", Stage("rewrite")},
		{"MountPoint", KeyMountPoint, "/docs", MountPoint("/docs", true)},
		{"MountPointUnset", KeyMountPoint, "<unset>", MountPoint("", false)},
		{"Error", KeyError, "boom", Error(errors.New("boom"))},
		{"NilError", KeyError, "", Error(nil)},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %q, got %q", tc.name, tc.attrVal, got)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Literals(3); a.Key != KeyLiterals || a.Value.Int64() != 3 {
		t.Fatalf("unexpected literals attr: %v", a)
	}
	if a := Hrefs(1); a.Key != KeyHrefs || a.Value.Int64() != 1 {
		t.Fatalf("unexpected hrefs attr: %v", a)
	}
	if a := DurationMS(1.5); a.Key != KeyDurationMS || a.Value.Float64() != 1.5 {
		t.Fatalf("unexpected duration attr: %v", a)
	}
}
