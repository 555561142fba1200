// Package models defines the data objects shared across lazyhg packages.
package models

// Status is the normalised state of a file as reported by hg status.
type Status int

// Status values. Exactly one applies to each classified file.
const (
	StatusModified Status = iota
	StatusDeleted
	StatusIgnored
	StatusUntracked
	StatusMissing
	StatusAdded
	StatusRenamed
	StatusClean
)

var statusNames = map[Status]string{
	StatusModified:  "modified",
	StatusDeleted:   "deleted",
	StatusIgnored:   "ignored",
	StatusUntracked: "untracked",
	StatusMissing:   "missing",
	StatusAdded:     "added",
	StatusRenamed:   "renamed",
	StatusClean:     "clean",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// MergeStatus tracks the merge-resolution state of a file, independently of Status.
type MergeStatus int

// MergeStatus values.
const (
	MergeStatusNone MergeStatus = iota
	MergeStatusResolved
	MergeStatusUnresolved
)

func (m MergeStatus) String() string {
	switch m {
	case MergeStatusResolved:
		return "resolved"
	case MergeStatusUnresolved:
		return "unresolved"
	default:
		return "none"
	}
}

// FileStatus is one raw line of hg status or hg resolve --list output.
type FileStatus struct {
	Path   string // Relative to the repository root, slash separated
	Status string // Single letter code as printed by hg
	Rename string // Copy/rename source reported by hg status -C, empty otherwise
}

// RepoStatus carries repository-wide facts gathered alongside file statuses.
type RepoStatus struct {
	IsMerge bool
}

const (
	// StateDirName is the directory under .hg where lazyhg keeps its own state.
	StateDirName = "lazyhg"
	// StagingFilename stores the user-curated staging selection.
	StagingFilename = "staging.json"
)
