// Package scm classifies hg status output into the six presentation groups.
package scm

import (
	"errors"
	"os"

	"github.com/chmouel/lazyhg/internal/models"
)

// GroupStatusesParams carries everything one classification pass needs.
type GroupStatusesParams struct {
	Root string
	// Staging is the previous generation's staging group. It is only read.
	Staging         *ResourceGroup
	FileStatuses    []models.FileStatus
	ParentStatuses  []models.FileStatus
	RepoStatus      models.RepoStatus
	ResolveStatuses []models.FileStatus // nil when no merge resolution data is available
	// Exists reports whether a path is present on disk. Defaults to PathExists.
	Exists func(path string) bool
}

// PathExists reports whether path exists. Any stat error counts as absent.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type classifier struct {
	params    GroupStatusesParams
	buckets   map[GroupID][]Resource
	resolveBy map[string]models.FileStatus
}

// GroupStatuses classifies the raw statuses into six new groups.
// It fails on the first unknown status letter and returns no groups in that case.
func GroupStatuses(params GroupStatusesParams) (*StatusGroups, error) {
	if params.Exists == nil {
		params.Exists = PathExists
	}
	c := &classifier{
		params:    params,
		buckets:   make(map[GroupID][]Resource, len(GroupIDs)),
		resolveBy: make(map[string]models.FileStatus, len(params.ResolveStatuses)),
	}
	for _, res := range params.ResolveStatuses {
		if _, ok := c.resolveBy[res.Path]; !ok {
			c.resolveBy[res.Path] = res
		}
	}

	if err := c.parentPass(); err != nil {
		return nil, err
	}
	if err := c.workingPass(); err != nil {
		return nil, err
	}

	return &StatusGroups{
		Conflict:  NewResourceGroup(GroupConflict, c.buckets[GroupConflict]),
		Staging:   NewResourceGroup(GroupStaging, c.buckets[GroupStaging]),
		Merge:     NewResourceGroup(GroupMerge, c.buckets[GroupMerge]),
		Working:   NewResourceGroup(GroupWorking, c.buckets[GroupWorking]),
		Untracked: NewResourceGroup(GroupUntracked, c.buckets[GroupUntracked]),
		Parent:    NewResourceGroup(GroupParent, c.buckets[GroupParent]),
	}, nil
}

// parentPass places every parent-relative entry in the Parent group.
func (c *classifier) parentPass() error {
	seen := make(map[string]struct{}, len(c.params.ParentStatuses))
	for _, raw := range c.params.ParentStatuses {
		uri := ResolveURI(c.params.Root, raw.Path)
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}

		status, err := c.translate(raw.Status, raw.Rename != "", raw.Path)
		if err != nil {
			return err
		}
		c.buckets[GroupParent] = append(c.buckets[GroupParent], Resource{
			URI:             uri,
			Status:          status,
			MergeStatus:     models.MergeStatusNone,
			RenameURI:       c.renameURI(raw.Rename),
			DiffBaseRev:     ParentBaseRev,
			DiffLabelSuffix: ParentLabelSuffix,
		})
	}
	return nil
}

// workingPass classifies working-copy entries, then resolve-only stragglers.
func (c *classifier) workingPass() error {
	seen := make(map[string]struct{}, len(c.params.FileStatuses))
	for _, raw := range c.params.FileStatuses {
		uri := ResolveURI(c.params.Root, raw.Path)
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}

		mergeStatus := models.MergeStatusNone
		if resolved, ok := c.findResolve(raw.Path); ok {
			mergeStatus = ToMergeStatus(resolved.Status)
		}
		if err := c.place(uri, raw.Path, raw.Status, mergeStatus, raw.Rename); err != nil {
			return err
		}
	}

	// A file can be clean in the working copy yet still need resolving,
	// e.g. changed locally and deleted on the other side.
	for _, raw := range c.params.ResolveStatuses {
		uri := ResolveURI(c.params.Root, raw.Path)
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}

		inferred := "R"
		if c.params.Exists(uri) {
			inferred = "C"
		}
		if err := c.place(uri, raw.Path, inferred, ToMergeStatus(raw.Status), ""); err != nil {
			return err
		}
	}
	return nil
}

func (c *classifier) place(uri, rel, rawStatus string, mergeStatus models.MergeStatus, rename string) error {
	status, err := c.translate(rawStatus, rename != "", rel)
	if err != nil {
		return err
	}
	group := c.chooseGroup(uri, status, mergeStatus)
	c.buckets[group] = append(c.buckets[group], Resource{
		URI:         uri,
		Status:      status,
		MergeStatus: mergeStatus,
		RenameURI:   c.renameURI(rename),
	})
	return nil
}

// chooseGroup applies the classification precedence; the first matching rule wins.
func (c *classifier) chooseGroup(uri string, status models.Status, mergeStatus models.MergeStatus) GroupID {
	if status == models.StatusIgnored || status == models.StatusUntracked {
		return GroupUntracked
	}
	if c.params.RepoStatus.IsMerge {
		if mergeStatus == models.MergeStatusUnresolved {
			return GroupConflict
		}
		return GroupMerge
	}
	if c.params.Staging.IncludesURI(uri) {
		return GroupStaging
	}
	return GroupWorking
}

// findResolve matches on the relative hg path, not the resolved URI.
func (c *classifier) findResolve(rel string) (models.FileStatus, bool) {
	res, ok := c.resolveBy[rel]
	return res, ok
}

func (c *classifier) translate(raw string, renamed bool, rel string) (models.Status, error) {
	status, err := TranslateStatus(raw, renamed)
	if err != nil {
		var unknown *UnknownStatusError
		if errors.As(err, &unknown) {
			unknown.Path = rel
		}
		return 0, err
	}
	return status, nil
}

func (c *classifier) renameURI(rename string) string {
	if rename == "" {
		return ""
	}
	return ResolveURI(c.params.Root, rename)
}
