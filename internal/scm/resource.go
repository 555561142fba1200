package scm

import (
	"path/filepath"

	"github.com/chmouel/lazyhg/internal/models"
)

const (
	// ParentBaseRev is the revision parent resources are compared against.
	ParentBaseRev = ".^"
	// ParentLabelSuffix is appended to diff titles of parent resources.
	ParentLabelSuffix = " (vs Parent)"
)

// Resource is one classified file. It is a value; copies are independent.
type Resource struct {
	Group       GroupID
	URI         string // Absolute path of the reported file
	Status      models.Status
	MergeStatus models.MergeStatus
	RenameURI   string // Absolute path of the copy/rename source, if any

	// Only set for parent resources.
	DiffBaseRev     string
	DiffLabelSuffix string
}

// ResolveURI joins a repository-relative hg path onto the root.
func ResolveURI(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Renamed reports whether the resource carries a rename source.
func (r Resource) Renamed() bool {
	return r.RenameURI != ""
}

// RelPath returns the resource path relative to root, falling back to the URI.
func (r Resource) RelPath(root string) string {
	return relTo(root, r.URI)
}

// RenameRelPath returns the rename source relative to root.
func (r Resource) RenameRelPath(root string) string {
	if r.RenameURI == "" {
		return ""
	}
	return relTo(root, r.RenameURI)
}

// Letter is the one-letter decoration shown next to the file.
func (r Resource) Letter() string {
	switch r.Status {
	case models.StatusModified:
		return "M"
	case models.StatusAdded, models.StatusRenamed:
		return "A"
	case models.StatusDeleted:
		return "R"
	case models.StatusIgnored:
		return "I"
	case models.StatusUntracked:
		return "?"
	case models.StatusMissing:
		return "!"
	case models.StatusClean:
		if r.MergeStatus == models.MergeStatusUnresolved {
			return "!"
		}
		return "C"
	default:
		return ""
	}
}

// withGroup returns a copy bound to another group.
func (r Resource) withGroup(id GroupID) Resource {
	r.Group = id
	return r
}

func relTo(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
