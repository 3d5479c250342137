package csom

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSessionType = uuid.MustParse("981cbc68-9edc-4f8d-872f-71146fcbb84f")

func TestGraph_IDsUniqueAcrossPathsAndActions(t *testing.T) {
	g := NewGraph()
	var ids []int

	session := g.StaticMethod(testSessionType, "GetTaxonomySession")
	ids = append(ids, session)
	store := g.Method(session, "GetDefaultSiteCollectionTermStore")
	ids = append(ids, store, g.Instantiate(store), g.QueryIdentity(store))
	groups := g.Property(store, "Groups")
	ids = append(ids, groups)
	group := g.Method(groups, "GetByName", String("People"))
	ids = append(ids, group, g.QueryProperties(group, nil))
	ids = append(ids, g.SetProperty(group, "Description", String("d")), g.Commit(store))

	require.NoError(t, g.Err())
	for i := 1; i < len(ids); i++ {
		assert.Greater(t, ids[i], ids[i-1], "ids must strictly increase")
	}
	assert.Len(t, g.Paths(), 4)
	assert.Len(t, g.Actions(), 5)
}

func TestGraph_DanglingParent(t *testing.T) {
	g := NewGraph()
	id := g.Method(99, "GetById")

	assert.Equal(t, 0, id)
	var de *DanglingReferenceError
	require.ErrorAs(t, g.Err(), &de)
	assert.Equal(t, "Method", de.Op)
	assert.Equal(t, 99, de.Ref)
	assert.Equal(t, ErrCodeDanglingReference, KindOf(g.Err()))
	assert.Empty(t, g.Paths())
}

func TestGraph_ActionIDIsNotAPath(t *testing.T) {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	q := g.QueryIdentity(root)

	assert.Equal(t, 0, g.Property(q, "Groups"), "an action id cannot parent a path")
	assert.Error(t, g.Err())
}

func TestGraph_ErrorIsSticky(t *testing.T) {
	g := NewGraph()
	g.QueryIdentity(5)
	first := g.Err()
	require.Error(t, first)

	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	assert.Equal(t, 0, root, "calls after an error add nothing")
	assert.Same(t, first, g.Err())

	_, err := g.Serialize(Envelope{})
	assert.Same(t, first, err)
}

func TestGraph_DanglingObjectRefParameter(t *testing.T) {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	g.InvokeMethod(root, "Touch", ObjectRef(42))

	var de *DanglingReferenceError
	require.ErrorAs(t, g.Err(), &de)
	assert.Equal(t, 42, de.Ref)
}

func TestGraph_ZeroIdentityToken(t *testing.T) {
	g := NewGraph()
	assert.Equal(t, 0, g.Identity(IdentityToken{}))
	assert.True(t, IsDanglingReference(g.Err()))
}

func TestGraph_SealedAfterSerialize(t *testing.T) {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	g.QueryIdentity(root)

	_, err := g.Serialize(Envelope{})
	require.NoError(t, err)
	assert.True(t, g.Sealed())

	assert.Equal(t, 0, g.QueryProperties(root, nil))
	var se *GraphSealedError
	require.ErrorAs(t, g.Err(), &se)
	assert.Equal(t, "QueryProperties", se.Op)
}

func TestGraph_RetrievalIDs(t *testing.T) {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	g.Instantiate(root)
	a := g.QueryIdentity(root)
	b := g.QueryProperties(root, Select("Name"))
	g.SetProperty(root, "Name", String("x"))
	g.Commit(root)

	assert.Equal(t, []int{a, b}, g.RetrievalIDs())
}

func TestGraph_IdentityIsParentless(t *testing.T) {
	g := NewGraph()
	id := g.Identity(CaptureIdentity("tok-A"))
	require.NoError(t, g.Err())

	paths := g.Paths()
	require.Len(t, paths, 1)
	assert.Equal(t, id, paths[0].ID)
	assert.Equal(t, PathIdentity, paths[0].Kind)
	assert.Equal(t, 0, paths[0].ParentID)
	assert.True(t, g.IsPath(id))
}

func TestGraph_AccessorsReturnCopies(t *testing.T) {
	g := NewGraph()
	g.StaticMethod(testSessionType, "GetTaxonomySession")

	paths := g.Paths()
	paths[0].Name = "changed"
	assert.Equal(t, "GetTaxonomySession", g.Paths()[0].Name)
}

func TestGraph_SharedAllocator(t *testing.T) {
	ids := NewAllocatorAt(10)
	g := NewGraphWith(ids)
	assert.Equal(t, 11, g.StaticMethod(testSessionType, "GetTaxonomySession"))
	assert.Equal(t, 11, ids.Current())
}
