package workspace

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eleven-am/menu-capture/internal/shared"
)

func newTestRoot(t *testing.T) *Root {
	t.Helper()
	root, err := NewRoot(t.TempDir())
	if err != nil {
		t.Fatalf("NewRoot error: %v", err)
	}
	return root
}

func TestNewRoot_Empty(t *testing.T) {
	if _, err := NewRoot("  "); err == nil {
		t.Error("expected error for empty root")
	}
}

func TestNewRoot_Canonicalises(t *testing.T) {
	dir := t.TempDir()
	root, err := NewRoot(dir + "/sub/../")
	if err != nil {
		t.Fatalf("NewRoot error: %v", err)
	}
	if root.Dir() != filepath.Clean(dir) {
		t.Errorf("expected %s, got %s", filepath.Clean(dir), root.Dir())
	}
}

func TestRoot_Resolve(t *testing.T) {
	root := newTestRoot(t)
	dir := root.Dir()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "relative file", input: "menu.png", want: filepath.Join(dir, "menu.png")},
		{name: "nested relative", input: "a/b/c.json", want: filepath.Join(dir, "a/b/c.json")},
		{name: "dot segments inside", input: "a/./b/../c.png", want: filepath.Join(dir, "a/c.png")},
		{name: "absolute inside", input: filepath.Join(dir, "x.png"), want: filepath.Join(dir, "x.png")},
		{name: "root itself", input: dir, want: dir},
		{name: "dot is root", input: ".", want: dir},
		{name: "traversal out", input: "../outside.png", wantErr: true},
		{name: "deep traversal", input: "a/../../../etc/passwd", wantErr: true},
		{name: "absolute outside", input: "/etc/passwd", wantErr: true},
		{name: "sibling with shared prefix", input: dir + "-evil/x.png", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "nul byte", input: "a\x00b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := root.Resolve(tt.input)
			if tt.wantErr {
				var pathErr *shared.InvalidPathError
				if !errors.As(err, &pathErr) {
					t.Fatalf("expected InvalidPathError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRoot_ResolveChild_RejectsRoot(t *testing.T) {
	root := newTestRoot(t)

	for _, input := range []string{".", root.Dir(), "a/.."} {
		if _, err := root.ResolveChild(input); err == nil {
			t.Errorf("expected %q to be rejected", input)
		}
	}

	if _, err := root.ResolveChild("a"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// Accepted exactly when the lexically cleaned candidate sits at or under the
// cleaned root.
func TestRoot_Resolve_PrefixProperty(t *testing.T) {
	root := newTestRoot(t)
	segments := []string{"a", "b", "..", ".", "menu.png", "../..", "x/../y"}

	var inputs []string
	for _, s1 := range segments {
		for _, s2 := range segments {
			for _, s3 := range segments {
				inputs = append(inputs, s1+"/"+s2+"/"+s3)
			}
		}
	}

	for _, input := range inputs {
		canonical := filepath.Clean(filepath.Join(root.Dir(), input))
		inside := canonical == root.Dir() || strings.HasPrefix(canonical, root.Dir()+string(filepath.Separator))

		got, err := root.Resolve(input)
		if inside && err != nil {
			t.Errorf("%q: expected accept, got %v", input, err)
		}
		if !inside && err == nil {
			t.Errorf("%q: expected reject, got %s", input, got)
		}
		if err == nil && got != canonical {
			t.Errorf("%q: expected %s, got %s", input, canonical, got)
		}
	}
}

func TestRoot_Rel(t *testing.T) {
	root := newTestRoot(t)
	if got := root.Rel(filepath.Join(root.Dir(), "a", "b.png")); got != "a/b.png" {
		t.Errorf("expected a/b.png, got %s", got)
	}
	if got := root.Rel(root.Dir()); got != "" {
		t.Errorf("expected empty rel for root, got %s", got)
	}
}
