package csom

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/csom/internal/payload"
)

const okMeta = `{"SchemaVersion":"15.0.0.0","LibraryVersion":"16.0.24817.12008","ErrorInfo":null,"TraceCorrelationId":"e1c6d69f-a07e-4000-8a1e-a8c4c7f33f5d"}`

const duplicateMeta = `{"SchemaVersion":"15.0.0.0","LibraryVersion":"16.0.24817.12008","ErrorInfo":{` +
	`"ErrorMessage":"A term set already exists with the name specified.","ErrorValue":null,` +
	`"TraceCorrelationId":"1f2e3d4c-0000-4000-8000-000000000001","ErrorCode":-2147024809,` +
	`"ErrorTypeName":"Microsoft.SharePoint.Taxonomy.TermStoreOperationException"},` +
	`"TraceCorrelationId":"1f2e3d4c-0000-4000-8000-000000000001"}`

// retrievalGraph has retrieval actions 3, 4 and 5.
func retrievalGraph() *Graph {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	store := g.Method(root, "GetDefaultSiteCollectionTermStore")
	g.QueryIdentity(store)
	g.QueryProperties(store, Select("Name"))
	g.QueryIdentity(root)
	return g
}

func TestCorrelate_Complete(t *testing.T) {
	body := `[` + okMeta + `,3,{"_ObjectIdentity_":"store-tok"},4,{"_ObjectType_":"SP.Taxonomy.TermStore","Name":"Taxonomy_1"},5,{"_ObjectIdentity_":"session-tok"}]`

	res, err := Correlate(retrievalGraph(), []byte(body))
	require.NoError(t, err)

	assert.Equal(t, 3, res.Len())
	assert.Equal(t, []int{3, 4, 5}, res.IDs())
	assert.Equal(t, "e1c6d69f-a07e-4000-8a1e-a8c4c7f33f5d", res.Metadata.TraceCorrelationID)

	obj, ok := res.Object(4)
	require.True(t, ok)
	name, _ := obj.Str("Name")
	assert.Equal(t, "Taxonomy_1", name)

	ids := res.Identities()
	assert.Len(t, ids, 2)
	assert.Equal(t, "store-tok", ids[3].Attr())
}

func TestCorrelate_PairOrderNotSignificant(t *testing.T) {
	body := `[` + okMeta + `,5,{"_ObjectIdentity_":"session-tok"},2,{"IsNull":false},4,{"Name":"x"},3,{"_ObjectIdentity_":"store-tok"}]`

	res, err := Correlate(retrievalGraph(), []byte(body))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, res.IDs())

	v, ok := res.Value(2)
	require.True(t, ok)
	assert.Equal(t, payload.Object{"IsNull": payload.Bool(false)}, v)
}

func TestCorrelate_MissingID(t *testing.T) {
	body := `[` + okMeta + `,3,{"_ObjectIdentity_":"store-tok"},5,{"_ObjectIdentity_":"session-tok"}]`

	res, err := Correlate(retrievalGraph(), []byte(body))
	assert.Nil(t, res)

	var pv *ProtocolViolationError
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, []int{4}, pv.MissingIDs)
	assert.True(t, IsProtocolViolation(err))
	assert.False(t, IsBusinessError(err))
}

func TestCorrelate_BusinessError(t *testing.T) {
	body := `[` + duplicateMeta + `]`

	_, err := Correlate(retrievalGraph(), []byte(body))

	var be *BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "A term set already exists with the name specified.", be.Message)
	assert.Equal(t, int64(-2147024809), be.Code)
	assert.Equal(t, "Microsoft.SharePoint.Taxonomy.TermStoreOperationException", be.TypeName)
	assert.Equal(t, "1f2e3d4c-0000-4000-8000-000000000001", be.TraceCorrelationID)
	assert.Equal(t, ErrCodeBusiness, KindOf(err))
}

// The tail after a failing metadata record is never read, so garbage there
// cannot turn a business error into a malformed one.
func TestCorrelate_ErrorShortCircuit(t *testing.T) {
	tails := []string{
		`,3,{"_ObjectIdentity_":`,
		`,"three",{}]`,
		`,3]`,
		`,3,{}]trailing`,
	}
	for _, tail := range tails {
		t.Run(tail, func(t *testing.T) {
			_, err := Correlate(retrievalGraph(), []byte(`[`+duplicateMeta+tail))
			require.Error(t, err)
			assert.True(t, IsBusinessError(err), "got %v", err)
		})
	}
}

func TestCorrelate_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"not an array", `{"SchemaVersion":"15.0.0.0"}`},
		{"empty array", `[]`},
		{"metadata not an object", `[42]`},
		{"odd length", `[` + okMeta + `,3,{"_ObjectIdentity_":"a"},4]`},
		{"string id", `[` + okMeta + `,"3",{}]`},
		{"fractional id", `[` + okMeta + `,3.5,{}]`},
		{"object id", `[` + okMeta + `,{},{}]`},
		{"duplicate id", `[` + okMeta + `,3,{},3,{}]`},
		{"unterminated", `[` + okMeta + `,3,{}`},
		{"truncated payload", `[` + okMeta + `,3,{"a":`},
		{"trailing data", `[` + okMeta + `]x`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Correlate(NewGraph(), []byte(tt.body))
			require.Error(t, err)
			assert.True(t, IsMalformedResponse(err), "got %v", err)
		})
	}
}

func TestCorrelate_NoRetrievals(t *testing.T) {
	g := NewGraph()
	store := g.Identity(CaptureIdentity("store"))
	g.Commit(store)

	res, err := Correlate(g, []byte(`[`+okMeta+`]`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
}

func TestCorrelate_CompletenessProperty(t *testing.T) {
	for n := 1; n <= 20; n++ {
		g := NewGraph()
		root := g.StaticMethod(testSessionType, "GetTaxonomySession")
		var want []int
		for i := 0; i < n; i++ {
			if i%2 == 0 {
				want = append(want, g.QueryIdentity(root))
			} else {
				want = append(want, g.QueryProperties(root, nil))
			}
		}

		body := `[` + okMeta
		for i := len(want) - 1; i >= 0; i-- {
			body += fmt.Sprintf(`,%d,{"_ObjectIdentity_":"tok-%d"}`, want[i], want[i])
		}
		body += `]`

		res, err := Correlate(g, []byte(body))
		require.NoError(t, err)
		assert.Equal(t, want, res.IDs())
	}
}

func TestResult_Capture(t *testing.T) {
	body := `[` + okMeta + `,3,{"_ObjectIdentity_":"a&b\nc"},4,{"Name":"x"},5,{"_ObjectIdentity_":"s"}]`
	res, err := Correlate(retrievalGraph(), []byte(body))
	require.NoError(t, err)

	s := NewSession()
	require.NoError(t, res.Capture(s, "termStore", 3))
	assert.Equal(t, "a&amp;b&#xA;c", s.MustRecall("termStore").Attr())

	err = res.Capture(s, "createdObject", 4)
	assert.True(t, IsProtocolViolation(err))
	assert.False(t, s.Has("createdObject"))

	err = res.Capture(s, "missing", 99)
	assert.True(t, IsProtocolViolation(err))
}
