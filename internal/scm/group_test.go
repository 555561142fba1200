package scm

import (
	"path/filepath"
	"testing"

	"github.com/chmouel/lazyhg/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func res(name string, status models.Status) Resource {
	return Resource{URI: filepath.Join(testRoot, name), Status: status}
}

func TestNewResourceGroupKeepsFirstOccurrence(t *testing.T) {
	g := NewResourceGroup(GroupWorking, []Resource{
		res("a", models.StatusModified),
		res("b", models.StatusAdded),
		res("a", models.StatusDeleted),
	})

	require.Equal(t, 2, g.Len())
	a, ok := g.GetResource(filepath.Join(testRoot, "a"))
	require.True(t, ok)
	assert.Equal(t, models.StatusModified, a.Status)
	assert.Equal(t, GroupWorking, a.Group)
	assert.Equal(t, []string{filepath.Join(testRoot, "a"), filepath.Join(testRoot, "b")}, g.URIs())
}

func TestResourceGroupLookups(t *testing.T) {
	g := NewResourceGroup(GroupStaging, []Resource{res("a", models.StatusModified)})

	assert.True(t, g.Includes(res("a", models.StatusAdded)))
	assert.True(t, g.IncludesURI(filepath.Join(testRoot, "a")))
	assert.False(t, g.IncludesURI(filepath.Join(testRoot, "b")))
	_, ok := g.GetResource(filepath.Join(testRoot, "b"))
	assert.False(t, ok)
	assert.Equal(t, "Staged Changes", g.Label())

	var nilGroup *ResourceGroup
	assert.False(t, nilGroup.IncludesURI("x"))
	assert.Zero(t, nilGroup.Len())
	assert.Nil(t, nilGroup.Resources())
}

func TestResourceGroupResourcesIsACopy(t *testing.T) {
	g := NewResourceGroup(GroupWorking, []Resource{res("a", models.StatusModified)})
	out := g.Resources()
	out[0].Status = models.StatusDeleted

	again, _ := g.GetResource(filepath.Join(testRoot, "a"))
	assert.Equal(t, models.StatusModified, again.Status)
}

func TestResourceGroupUnion(t *testing.T) {
	staging := NewResourceGroup(GroupStaging, []Resource{res("a", models.StatusModified), res("b", models.StatusModified)})
	incoming := []Resource{
		{Group: GroupWorking, URI: filepath.Join(testRoot, "b"), Status: models.StatusDeleted},
		{Group: GroupWorking, URI: filepath.Join(testRoot, "c"), Status: models.StatusAdded},
		{Group: GroupWorking, URI: filepath.Join(testRoot, "d"), Status: models.StatusAdded, RenameURI: filepath.Join(testRoot, "e")},
	}

	out := staging.Union(incoming)

	assert.Equal(t, GroupStaging, out.ID())
	assert.Equal(t, []string{"a", "b", "c", "d"}, groupPaths(t, out))
	b, _ := out.GetResource(filepath.Join(testRoot, "b"))
	assert.Equal(t, models.StatusModified, b.Status, "existing entries win")
	c, _ := out.GetResource(filepath.Join(testRoot, "c"))
	assert.Equal(t, GroupStaging, c.Group, "appended resources are re-bound")
	d, _ := out.GetResource(filepath.Join(testRoot, "d"))
	assert.Equal(t, filepath.Join(testRoot, "e"), d.RenameURI)

	assert.Equal(t, 2, staging.Len(), "original untouched")
}

func TestResourceGroupExcept(t *testing.T) {
	working := NewResourceGroup(GroupWorking, []Resource{
		res("a", models.StatusModified),
		res("b", models.StatusModified),
		res("c", models.StatusModified),
	})

	out := working.Except([]Resource{res("b", models.StatusAdded), res("zz", models.StatusAdded)})

	assert.Equal(t, GroupWorking, out.ID())
	assert.Equal(t, []string{"a", "c"}, groupPaths(t, out))
	assert.Equal(t, 3, working.Len())
}

func TestUnionThenExceptRestoresMembership(t *testing.T) {
	g := NewResourceGroup(GroupWorking, []Resource{res("a", models.StatusModified), res("b", models.StatusAdded)})
	x := []Resource{res("c", models.StatusModified), res("d", models.StatusMissing)}

	round := g.Union(x).Except(x)

	assert.Equal(t, g.URIs(), round.URIs())
	assert.Equal(t, g.Resources(), round.Resources())
}

func TestGroupIDNames(t *testing.T) {
	want := map[GroupID][2]string{
		GroupConflict:  {"conflict", "Unresolved Conflicts"},
		GroupStaging:   {"staging", "Staged Changes"},
		GroupMerge:     {"merge", "Merged Changes"},
		GroupWorking:   {"working", "Changes"},
		GroupUntracked: {"untracked", "Untracked Files"},
		GroupParent:    {"parent", "Parent Changes"},
	}
	require.Len(t, GroupIDs, 6)
	for _, id := range GroupIDs {
		assert.Equal(t, want[id][0], id.String())
		assert.Equal(t, want[id][1], id.Label())
		parsed, err := ParseGroupID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
	_, err := ParseGroupID("bogus")
	assert.Error(t, err)
}

func TestStatusGroupsAccessors(t *testing.T) {
	groups := EmptyStatusGroups()
	for _, id := range GroupIDs {
		require.NotNil(t, groups.Get(id))
		assert.Equal(t, id, groups.Get(id).ID())
	}
	assert.Nil(t, groups.Get(GroupID(42)))

	staged := NewResourceGroup(GroupStaging, []Resource{res("a", models.StatusModified)})
	next := groups.With(staged)
	assert.Equal(t, 1, next.Total())
	assert.Zero(t, groups.Total(), "With returns a copy")

	r, ok := next.Find(filepath.Join(testRoot, "a"))
	require.True(t, ok)
	assert.Equal(t, GroupStaging, r.Group)
	_, ok = next.Find(filepath.Join(testRoot, "missing"))
	assert.False(t, ok)
}
