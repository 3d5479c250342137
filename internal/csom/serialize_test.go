package csom

import (
	"encoding/xml"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const requestOpen = `<Request AddExpandoFieldTypeSuffix="true" SchemaVersion="15.0.0.0" LibraryVersion="16.0.0.0" ApplicationName="csom" xmlns="http://schemas.microsoft.com/sharepoint/clientquery/2009">`

func TestSerialize_Minimal(t *testing.T) {
	g := NewGraph()
	session := g.StaticMethod(testSessionType, "GetTaxonomySession")
	store := g.Method(session, "GetDefaultSiteCollectionTermStore")
	g.QueryIdentity(store)

	got, err := g.Serialize(Envelope{})
	require.NoError(t, err)

	want := requestOpen +
		`<Actions><ObjectIdentityQuery Id="3" ObjectPathId="2" /></Actions>` +
		`<ObjectPaths>` +
		`<StaticMethod Id="1" Name="GetTaxonomySession" TypeId="{981cbc68-9edc-4f8d-872f-71146fcbb84f}" />` +
		`<Method Id="2" ParentId="1" Name="GetDefaultSiteCollectionTermStore" />` +
		`</ObjectPaths></Request>`
	assert.Equal(t, want, string(got))
}

func TestSerialize_CreateWithParameters(t *testing.T) {
	id := uuid.MustParse("0e8f395e-ff58-4d45-9ff7-e331ab728beb")

	g := NewGraph()
	session := g.StaticMethod(testSessionType, "GetTaxonomySession")
	store := g.Method(session, "GetDefaultSiteCollectionTermStore")
	groups := g.Property(store, "Groups")
	group := g.Method(groups, "GetByName", String("People"))
	created := g.Method(group, "CreateTermSet", String("Orgs"), Guid(id), Int32(1033))
	g.QueryIdentity(created)
	g.QueryProperties(created, nil)

	got, err := g.Serialize(DefaultEnvelope())
	require.NoError(t, err)

	want := requestOpen +
		`<Actions>` +
		`<ObjectIdentityQuery Id="6" ObjectPathId="5" />` +
		`<Query Id="7" ObjectPathId="5"><Query SelectAllProperties="true"><Properties /></Query></Query>` +
		`</Actions>` +
		`<ObjectPaths>` +
		`<StaticMethod Id="1" Name="GetTaxonomySession" TypeId="{981cbc68-9edc-4f8d-872f-71146fcbb84f}" />` +
		`<Method Id="2" ParentId="1" Name="GetDefaultSiteCollectionTermStore" />` +
		`<Property Id="3" ParentId="2" Name="Groups" />` +
		`<Method Id="4" ParentId="3" Name="GetByName"><Parameters><Parameter Type="String">People</Parameter></Parameters></Method>` +
		`<Method Id="5" ParentId="4" Name="CreateTermSet"><Parameters>` +
		`<Parameter Type="String">Orgs</Parameter>` +
		`<Parameter Type="Guid">{0e8f395e-ff58-4d45-9ff7-e331ab728beb}</Parameter>` +
		`<Parameter Type="Int32">1033</Parameter>` +
		`</Parameters></Method>` +
		`</ObjectPaths></Request>`
	assert.Equal(t, want, string(got))
}

func TestSerialize_IdentityRefinement(t *testing.T) {
	g := NewGraph()
	store := g.Identity(CaptureIdentity("a&b"))
	created := g.Identity(CaptureIdentity("tok-A"))
	g.SetProperty(created, "Description", String("List of organizations"))
	g.Commit(store)

	got, err := g.Serialize(Envelope{ApplicationName: `R&D "tools"`})
	require.NoError(t, err)

	want := `<Request AddExpandoFieldTypeSuffix="true" SchemaVersion="15.0.0.0" LibraryVersion="16.0.0.0" ApplicationName="R&amp;D &quot;tools&quot;" xmlns="http://schemas.microsoft.com/sharepoint/clientquery/2009">` +
		`<Actions>` +
		`<SetProperty Id="3" ObjectPathId="2" Name="Description"><Parameter Type="String">List of organizations</Parameter></SetProperty>` +
		`<Method Name="CommitAll" Id="4" ObjectPathId="1" />` +
		`</Actions>` +
		`<ObjectPaths><Identity Id="1" Name="a&amp;b" /><Identity Id="2" Name="tok-A" /></ObjectPaths>` +
		`</Request>`
	assert.Equal(t, want, string(got))
}

func TestSerialize_Selection(t *testing.T) {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	sel := &Selection{
		Properties: []PropertySelection{
			{Name: "Name"},
			{Name: "Terms", Query: SelectAll()},
		},
		ChildItems: Select("Id"),
	}
	g.QueryProperties(root, sel)

	got, err := g.Serialize(Envelope{})
	require.NoError(t, err)

	assert.Contains(t, string(got),
		`<Query Id="2" ObjectPathId="1">`+
			`<Query SelectAllProperties="false"><Properties>`+
			`<Property Name="Name" ScalarProperty="true" />`+
			`<Property Name="Terms" SelectAll="true"><Query SelectAllProperties="true"><Properties /></Query></Property>`+
			`</Properties></Query>`+
			`<ChildItemQuery SelectAllProperties="false"><Properties><Property Name="Id" ScalarProperty="true" /></Properties></ChildItemQuery>`+
			`</Query>`)
}

func TestSerialize_StaticPropertyAndConstructor(t *testing.T) {
	typeID := uuid.MustParse("3747adcd-a3c3-41b9-bfab-4a64dd2f1e0a")

	g := NewGraph()
	g.StaticProperty(typeID, "Current")
	ctor := g.Constructor(typeID, Bool(true), Null())
	g.Instantiate(ctor)

	got, err := g.Serialize(Envelope{})
	require.NoError(t, err)
	assert.Contains(t, string(got), `<StaticProperty Id="1" Name="Current" TypeId="{3747adcd-a3c3-41b9-bfab-4a64dd2f1e0a}" />`)
	assert.Contains(t, string(got), `<Constructor Id="2" TypeId="{3747adcd-a3c3-41b9-bfab-4a64dd2f1e0a}"><Parameters><Parameter Type="Boolean">true</Parameter><Parameter Type="Null" /></Parameters></Constructor>`)
	assert.Contains(t, string(got), `<ObjectPath Id="3" ObjectPathId="2" />`)
}

func TestSerialize_Deterministic(t *testing.T) {
	g := NewGraph()
	root := g.StaticMethod(testSessionType, "GetTaxonomySession")
	g.QueryProperties(root, Select("Name", "Id"))

	first, err := g.Serialize(Envelope{})
	require.NoError(t, err)
	second, err := g.Serialize(Envelope{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSerialize_EmptyGraph(t *testing.T) {
	got, err := NewGraph().Serialize(Envelope{})
	require.NoError(t, err)
	assert.Equal(t, requestOpen+`<Actions></Actions><ObjectPaths></ObjectPaths></Request>`, string(got))
}

type parsedRequest struct {
	XMLName         xml.Name `xml:"Request"`
	ApplicationName string   `xml:"ApplicationName,attr"`
	Actions         struct {
		Nodes []struct {
			XMLName xml.Name
		} `xml:",any"`
	} `xml:"Actions"`
	ObjectPaths struct {
		Nodes []struct {
			XMLName xml.Name
			ID      string `xml:"Id,attr"`
			Name    string `xml:"Name,attr"`
		} `xml:",any"`
	} `xml:"ObjectPaths"`
}

func TestSerialize_WellFormed(t *testing.T) {
	g := NewGraph()
	store := g.Identity(CaptureIdentity("store\n<tok>"))
	g.SetProperty(store, "Description", String(`a<b>&"c"`))
	g.Commit(store)

	body, err := g.Serialize(Envelope{ApplicationName: "app&co"})
	require.NoError(t, err)

	var req parsedRequest
	require.NoError(t, xml.Unmarshal(body, &req))
	assert.Equal(t, "app&co", req.ApplicationName)
	assert.Len(t, req.Actions.Nodes, 2)
	require.Len(t, req.ObjectPaths.Nodes, 1)
	assert.Equal(t, "Identity", req.ObjectPaths.Nodes[0].XMLName.Local)
	assert.Equal(t, "store\n<tok>", req.ObjectPaths.Nodes[0].Name, "reader recovers the raw token")
}
