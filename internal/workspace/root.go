package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eleven-am/menu-capture/internal/shared"
)

// Root is a permitted directory subtree. Resolution is purely lexical:
// symlinks inside the tree are not followed or inspected.
type Root struct {
	dir string
}

func NewRoot(dir string) (*Root, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("workspace root is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}
	return &Root{dir: filepath.Clean(abs)}, nil
}

func (r *Root) Dir() string {
	return r.dir
}

// EnsureExists creates the root directory if it is missing.
func (r *Root) EnsureExists() error {
	return os.MkdirAll(r.dir, 0o755)
}

// Resolve canonicalises p against the root and accepts it only if the
// result is the root or lies beneath it.
func (r *Root) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", &shared.InvalidPathError{Path: p, Reason: "path is empty"}
	}
	if strings.ContainsRune(p, 0) {
		return "", &shared.InvalidPathError{Path: p, Reason: "path contains a NUL byte"}
	}

	candidate := p
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.dir, candidate)
	}
	candidate = filepath.Clean(candidate)

	if candidate == r.dir {
		return candidate, nil
	}
	prefix := r.dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if !strings.HasPrefix(candidate, prefix) {
		return "", &shared.InvalidPathError{Path: p, Reason: "path escapes the permitted root"}
	}
	return candidate, nil
}

// ResolveChild is Resolve for operations that must never target the root
// itself, such as deletes and writes.
func (r *Root) ResolveChild(p string) (string, error) {
	resolved, err := r.Resolve(p)
	if err != nil {
		return "", err
	}
	if resolved == r.dir {
		return "", &shared.InvalidPathError{Path: p, Reason: "operation not permitted on the root"}
	}
	return resolved, nil
}

// Rel returns the root-relative, slash-separated form of an already
// resolved path.
func (r *Root) Rel(resolved string) string {
	rel, err := filepath.Rel(r.dir, resolved)
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}
