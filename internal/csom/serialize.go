package csom

import (
	"bytes"
	"strconv"
)

// Envelope holds the attributes of the Request wrapper element.
type Envelope struct {
	SchemaVersion   string
	LibraryVersion  string
	ApplicationName string
}

// DefaultEnvelope returns the envelope used when the caller sets nothing.
func DefaultEnvelope() Envelope {
	return Envelope{
		SchemaVersion:   SchemaVersion,
		LibraryVersion:  LibraryVersion,
		ApplicationName: DefaultApplicationName,
	}
}

func (e Envelope) withDefaults() Envelope {
	d := DefaultEnvelope()
	if e.SchemaVersion == "" {
		e.SchemaVersion = d.SchemaVersion
	}
	if e.LibraryVersion == "" {
		e.LibraryVersion = d.LibraryVersion
	}
	if e.ApplicationName == "" {
		e.ApplicationName = d.ApplicationName
	}
	return e
}

// Serialize renders the graph as a ProcessQuery Request document and seals
// it against further mutation.
//
// Output is deterministic: the Actions section precedes the ObjectPaths
// section, and each lists its nodes in allocation order, so every parent
// appears before its children. Serializing a sealed graph again yields the
// same bytes. A graph with a construction error is never rendered.
func (g *Graph) Serialize(env Envelope) ([]byte, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.sealed = true
	env = env.withDefaults()

	var buf bytes.Buffer
	buf.WriteString(`<Request AddExpandoFieldTypeSuffix="true" SchemaVersion="`)
	buf.WriteString(EscapeXML(env.SchemaVersion))
	buf.WriteString(`" LibraryVersion="`)
	buf.WriteString(EscapeXML(env.LibraryVersion))
	buf.WriteString(`" ApplicationName="`)
	buf.WriteString(EscapeXML(env.ApplicationName))
	buf.WriteString(`" xmlns="`)
	buf.WriteString(Namespace)
	buf.WriteString(`">`)

	buf.WriteString(`<Actions>`)
	for _, a := range g.actions {
		writeAction(&buf, a)
	}
	buf.WriteString(`</Actions>`)

	buf.WriteString(`<ObjectPaths>`)
	for _, p := range g.paths {
		writePath(&buf, p)
	}
	buf.WriteString(`</ObjectPaths>`)

	buf.WriteString(`</Request>`)
	return buf.Bytes(), nil
}

func writePath(buf *bytes.Buffer, p ObjectPath) {
	buf.WriteByte('<')
	buf.WriteString(string(p.Kind))
	writeAttr(buf, "Id", strconv.Itoa(p.ID))

	switch p.Kind {
	case PathIdentity:
		// The token was escaped at capture time and is written as is.
		buf.WriteString(` Name="`)
		buf.WriteString(p.Identity.Attr())
		buf.WriteString(`" />`)
		return
	case PathStaticMethod, PathStaticProperty:
		writeAttr(buf, "Name", EscapeXML(p.Name))
		writeAttr(buf, "TypeId", bracedGuid(p.TypeID))
	case PathConstructor:
		writeAttr(buf, "TypeId", bracedGuid(p.TypeID))
	default:
		writeAttr(buf, "ParentId", strconv.Itoa(p.ParentID))
		writeAttr(buf, "Name", EscapeXML(p.Name))
	}

	if len(p.Parameters) == 0 {
		buf.WriteString(` />`)
		return
	}
	buf.WriteByte('>')
	encodeParameters(buf, p.Parameters)
	buf.WriteString(`</`)
	buf.WriteString(string(p.Kind))
	buf.WriteByte('>')
}

func writeAction(buf *bytes.Buffer, a Action) {
	switch a.Kind {
	case ActionObjectPath, ActionObjectIdentityQuery:
		buf.WriteByte('<')
		buf.WriteString(string(a.Kind))
		writeAttr(buf, "Id", strconv.Itoa(a.ID))
		writeAttr(buf, "ObjectPathId", strconv.Itoa(a.PathID))
		buf.WriteString(` />`)

	case ActionQuery:
		buf.WriteString(`<Query`)
		writeAttr(buf, "Id", strconv.Itoa(a.ID))
		writeAttr(buf, "ObjectPathId", strconv.Itoa(a.PathID))
		buf.WriteByte('>')
		writeSelection(buf, a.Selection)
		buf.WriteString(`</Query>`)

	case ActionSetProperty:
		buf.WriteString(`<SetProperty`)
		writeAttr(buf, "Id", strconv.Itoa(a.ID))
		writeAttr(buf, "ObjectPathId", strconv.Itoa(a.PathID))
		writeAttr(buf, "Name", EscapeXML(a.Name))
		buf.WriteByte('>')
		for _, p := range a.Parameters {
			p.encode(buf)
		}
		buf.WriteString(`</SetProperty>`)

	case ActionMethod:
		buf.WriteString(`<Method`)
		writeAttr(buf, "Name", EscapeXML(a.Name))
		writeAttr(buf, "Id", strconv.Itoa(a.ID))
		writeAttr(buf, "ObjectPathId", strconv.Itoa(a.PathID))
		if len(a.Parameters) == 0 {
			buf.WriteString(` />`)
			return
		}
		buf.WriteByte('>')
		encodeParameters(buf, a.Parameters)
		buf.WriteString(`</Method>`)
	}
}

// writeSelection renders the inner <Query> element of a Query action and,
// for collections, its <ChildItemQuery>.
func writeSelection(buf *bytes.Buffer, sel *Selection) {
	if sel == nil {
		sel = SelectAll()
	}
	writeQueryElement(buf, "Query", sel)
	if sel.ChildItems != nil {
		writeQueryElement(buf, "ChildItemQuery", sel.ChildItems)
	}
}

func writeQueryElement(buf *bytes.Buffer, tag string, sel *Selection) {
	buf.WriteByte('<')
	buf.WriteString(tag)
	writeAttr(buf, "SelectAllProperties", strconv.FormatBool(sel.SelectAll))
	buf.WriteByte('>')

	if len(sel.Properties) == 0 {
		buf.WriteString(`<Properties />`)
	} else {
		buf.WriteString(`<Properties>`)
		for _, p := range sel.Properties {
			writePropertySelection(buf, p)
		}
		buf.WriteString(`</Properties>`)
	}

	buf.WriteString(`</`)
	buf.WriteString(tag)
	buf.WriteByte('>')
}

func writePropertySelection(buf *bytes.Buffer, p PropertySelection) {
	buf.WriteString(`<Property`)
	writeAttr(buf, "Name", EscapeXML(p.Name))
	if p.Query == nil {
		writeAttr(buf, "ScalarProperty", "true")
		buf.WriteString(` />`)
		return
	}
	writeAttr(buf, "SelectAll", strconv.FormatBool(p.Query.SelectAll))
	buf.WriteByte('>')
	writeSelection(buf, p.Query)
	buf.WriteString(`</Property>`)
}

// writeAttr writes ` name="value"`; value must already be escaped.
func writeAttr(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(' ')
	buf.WriteString(name)
	buf.WriteString(`="`)
	buf.WriteString(value)
	buf.WriteByte('"')
}
