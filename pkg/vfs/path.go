package vfs

import (
	"fmt"
	"strings"
)

// ============================================================================
// Path Model
// ============================================================================
//
// Paths are canonical absolute strings forming a denormalized adjacency list:
// an item's position is fully described by its Path, and its parent is
// addressed by ParentPath (nil for root items). The invariant maintained
// across every structural mutation is:
//
//	Path == (ParentPath ?? "") + "/" + Name
//
// No implicit normalization of "." or ".." segments is performed; callers are
// expected to supply already-clean segments.

// Separator is the path separator for the virtual namespace.
const Separator = "/"

// JoinPath computes the canonical path for a name under a parent path.
//
// A nil or empty parent means the item lives at the namespace root, yielding
// "/name". Otherwise the result is parent + "/" + name.
//
// Returns ErrInvalidPath if name is empty or contains a separator.
func JoinPath(parent *string, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name: %w", ErrInvalidPath)
	}
	if strings.Contains(name, Separator) {
		return "", fmt.Errorf("name %q contains a path separator: %w", name, ErrInvalidPath)
	}

	if parent == nil || *parent == "" {
		return Separator + name, nil
	}

	return *parent + Separator + name, nil
}

// NormalizeParent collapses the spellings of the root parent ("" and "/")
// to nil, the stored representation for root items. Any other parent path is
// returned with a trailing separator trimmed.
func NormalizeParent(parent *string) *string {
	if parent == nil {
		return nil
	}
	p := strings.TrimSuffix(*parent, Separator)
	if p == "" {
		return nil
	}
	return &p
}

// ValidateName checks that a leaf segment is usable as an item name.
//
// The same rules as JoinPath apply: non-empty, no separator.
func ValidateName(name string) error {
	_, err := JoinPath(nil, name)
	return err
}

// ExtensionOf returns the lower-cased last dot-delimited suffix of a name
// (including the dot), or nil if the name has no extension.
//
// A leading dot with no further dots (e.g. ".gitignore") is not treated as
// an extension.
func ExtensionOf(name string) *string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return nil
	}

	ext := strings.ToLower(name[idx:])
	return &ext
}
