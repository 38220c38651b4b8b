package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type NodeType string

const (
	NodeDirectory NodeType = "directory"
	NodeFile      NodeType = "file"
)

type Node struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     NodeType `json:"type"`
	Size     int64    `json:"size,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// Tree walks the root. Directories sort before files, each group
// alphabetically; dot-entries are skipped.
func (f *Files) Tree() (*Node, error) {
	node := &Node{
		Name: filepath.Base(f.root.Dir()),
		Path: "",
		Type: NodeDirectory,
	}
	if err := f.fill(node, f.root.Dir()); err != nil {
		return nil, err
	}
	return node, nil
}

func (f *Files) fill(node *Node, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", f.root.Rel(dir), err)
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		child := &Node{
			Name: entry.Name(),
			Path: f.root.Rel(full),
		}

		if entry.IsDir() {
			child.Type = NodeDirectory
			child.Children = []*Node{}
			if err := f.fill(child, full); err != nil {
				return err
			}
		} else {
			child.Type = NodeFile
			if info, err := entry.Info(); err == nil {
				child.Size = info.Size()
			}
		}
		node.Children = append(node.Children, child)
	}

	sort.SliceStable(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.Type != b.Type {
			return a.Type == NodeDirectory
		}
		return a.Name < b.Name
	})
	return nil
}

// WriteTree regenerates the tree and replaces dest atomically.
func (f *Files) WriteTree(dest string) (*Node, error) {
	tree, err := f.Tree()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tree: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create tree directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".tree-*.json")
	if err != nil {
		return nil, fmt.Errorf("create temp tree file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write tree: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close tree: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("replace tree file: %w", err)
	}

	f.logger.Info("tree regenerated", "dest", dest)
	return tree, nil
}
