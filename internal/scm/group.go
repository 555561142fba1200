package scm

import "fmt"

// GroupID identifies one of the six presentation groups.
type GroupID int

// Group identities, in presentation order.
const (
	GroupConflict GroupID = iota
	GroupStaging
	GroupMerge
	GroupWorking
	GroupUntracked
	GroupParent
)

// GroupIDs lists every group identity in presentation order.
var GroupIDs = []GroupID{GroupConflict, GroupStaging, GroupMerge, GroupWorking, GroupUntracked, GroupParent}

var groupNames = map[GroupID]struct {
	id    string
	label string
}{
	GroupConflict:  {"conflict", "Unresolved Conflicts"},
	GroupStaging:   {"staging", "Staged Changes"},
	GroupMerge:     {"merge", "Merged Changes"},
	GroupWorking:   {"working", "Changes"},
	GroupUntracked: {"untracked", "Untracked Files"},
	GroupParent:    {"parent", "Parent Changes"},
}

func (g GroupID) String() string {
	if n, ok := groupNames[g]; ok {
		return n.id
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Label is the human readable title of the group.
func (g GroupID) Label() string {
	if n, ok := groupNames[g]; ok {
		return n.label
	}
	return g.String()
}

// ParseGroupID returns the GroupID for its string id.
func ParseGroupID(s string) (GroupID, error) {
	for id, n := range groupNames {
		if n.id == s {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown resource group %q", s)
}

// ResourceGroup is an ordered set of resources keyed by URI.
// It is never mutated after construction; Union and Except return new groups.
type ResourceGroup struct {
	id        GroupID
	resources []Resource
	index     map[string]int
}

// NewResourceGroup builds a group from resources, re-binding each one to id.
// When the same URI appears more than once the first occurrence is kept.
func NewResourceGroup(id GroupID, resources []Resource) *ResourceGroup {
	g := &ResourceGroup{
		id:        id,
		resources: make([]Resource, 0, len(resources)),
		index:     make(map[string]int, len(resources)),
	}
	for _, r := range resources {
		g.add(r)
	}
	return g
}

func (g *ResourceGroup) add(r Resource) bool {
	if _, ok := g.index[r.URI]; ok {
		return false
	}
	g.index[r.URI] = len(g.resources)
	g.resources = append(g.resources, r.withGroup(g.id))
	return true
}

// ID returns the group identity.
func (g *ResourceGroup) ID() GroupID { return g.id }

// Label returns the group title.
func (g *ResourceGroup) Label() string { return g.id.Label() }

// Len returns the number of resources in the group.
func (g *ResourceGroup) Len() int {
	if g == nil {
		return 0
	}
	return len(g.resources)
}

// Resources returns a copy of the group's resources in order.
func (g *ResourceGroup) Resources() []Resource {
	if g == nil {
		return nil
	}
	out := make([]Resource, len(g.resources))
	copy(out, g.resources)
	return out
}

// URIs returns the URIs of the group's resources in order.
func (g *ResourceGroup) URIs() []string {
	if g == nil {
		return nil
	}
	out := make([]string, len(g.resources))
	for i, r := range g.resources {
		out[i] = r.URI
	}
	return out
}

// GetResource looks a resource up by URI.
func (g *ResourceGroup) GetResource(uri string) (Resource, bool) {
	if g == nil {
		return Resource{}, false
	}
	i, ok := g.index[uri]
	if !ok {
		return Resource{}, false
	}
	return g.resources[i], true
}

// IncludesURI reports whether a resource with uri is in the group.
func (g *ResourceGroup) IncludesURI(uri string) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[uri]
	return ok
}

// Includes reports whether a resource with the same URI is in the group.
func (g *ResourceGroup) Includes(r Resource) bool {
	return g.IncludesURI(r.URI)
}

// Union returns a new group holding this group's resources followed by every
// incoming resource whose URI is not already present. Existing entries win.
func (g *ResourceGroup) Union(incoming []Resource) *ResourceGroup {
	out := NewResourceGroup(g.id, g.resources)
	for _, r := range incoming {
		out.add(r)
	}
	return out
}

// Except returns a new group without the resources whose URI appears in toRemove.
func (g *ResourceGroup) Except(toRemove []Resource) *ResourceGroup {
	exclude := make(map[string]struct{}, len(toRemove))
	for _, r := range toRemove {
		exclude[r.URI] = struct{}{}
	}
	remaining := make([]Resource, 0, len(g.resources))
	for _, r := range g.resources {
		if _, ok := exclude[r.URI]; ok {
			continue
		}
		remaining = append(remaining, r)
	}
	return NewResourceGroup(g.id, remaining)
}

// StatusGroups is one generation of the six groups.
type StatusGroups struct {
	Conflict  *ResourceGroup
	Staging   *ResourceGroup
	Merge     *ResourceGroup
	Working   *ResourceGroup
	Untracked *ResourceGroup
	Parent    *ResourceGroup
}

// EmptyStatusGroups returns six empty groups.
func EmptyStatusGroups() *StatusGroups {
	return &StatusGroups{
		Conflict:  NewResourceGroup(GroupConflict, nil),
		Staging:   NewResourceGroup(GroupStaging, nil),
		Merge:     NewResourceGroup(GroupMerge, nil),
		Working:   NewResourceGroup(GroupWorking, nil),
		Untracked: NewResourceGroup(GroupUntracked, nil),
		Parent:    NewResourceGroup(GroupParent, nil),
	}
}

// Get returns the group with the given identity.
func (s *StatusGroups) Get(id GroupID) *ResourceGroup {
	switch id {
	case GroupConflict:
		return s.Conflict
	case GroupStaging:
		return s.Staging
	case GroupMerge:
		return s.Merge
	case GroupWorking:
		return s.Working
	case GroupUntracked:
		return s.Untracked
	case GroupParent:
		return s.Parent
	default:
		return nil
	}
}

// With returns a shallow copy where the group of the same identity is replaced by g.
func (s *StatusGroups) With(g *ResourceGroup) *StatusGroups {
	next := *s
	switch g.ID() {
	case GroupConflict:
		next.Conflict = g
	case GroupStaging:
		next.Staging = g
	case GroupMerge:
		next.Merge = g
	case GroupWorking:
		next.Working = g
	case GroupUntracked:
		next.Untracked = g
	case GroupParent:
		next.Parent = g
	}
	return &next
}

// All returns the six groups in presentation order.
func (s *StatusGroups) All() []*ResourceGroup {
	return []*ResourceGroup{s.Conflict, s.Staging, s.Merge, s.Working, s.Untracked, s.Parent}
}

// Total counts resources across every group.
func (s *StatusGroups) Total() int {
	n := 0
	for _, g := range s.All() {
		n += g.Len()
	}
	return n
}

// Find returns the first resource with uri, searching working-copy groups before Parent.
func (s *StatusGroups) Find(uri string) (Resource, bool) {
	for _, g := range s.All() {
		if r, ok := g.GetResource(uri); ok {
			return r, true
		}
	}
	return Resource{}, false
}
