package csom

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Parameter is a sealed interface over the scalar types a method argument
// or property value can take on the wire.
// Only StringParam, Int32Param, GuidParam, BoolParam, NullParam and
// ObjectRefParam implement it.
type Parameter interface {
	// TypeName returns the wire type tag ("String", "Int32", ...), or ""
	// for object references which carry no Type attribute.
	TypeName() string

	encode(buf *bytes.Buffer)
}

// StringParam is a String parameter. Its value is escaped on encoding.
type StringParam string

// TypeName implements Parameter.
func (StringParam) TypeName() string { return "String" }

func (p StringParam) encode(buf *bytes.Buffer) {
	buf.WriteString(`<Parameter Type="String">`)
	buf.WriteString(EscapeXML(string(p)))
	buf.WriteString(`</Parameter>`)
}

// Int32Param is an Int32 parameter.
type Int32Param int32

// TypeName implements Parameter.
func (Int32Param) TypeName() string { return "Int32" }

func (p Int32Param) encode(buf *bytes.Buffer) {
	buf.WriteString(`<Parameter Type="Int32">`)
	buf.WriteString(strconv.FormatInt(int64(p), 10))
	buf.WriteString(`</Parameter>`)
}

// GuidParam is a Guid parameter, rendered as lower-case braced hex.
type GuidParam uuid.UUID

// TypeName implements Parameter.
func (GuidParam) TypeName() string { return "Guid" }

func (p GuidParam) encode(buf *bytes.Buffer) {
	buf.WriteString(`<Parameter Type="Guid">`)
	buf.WriteString(bracedGuid(uuid.UUID(p)))
	buf.WriteString(`</Parameter>`)
}

// BoolParam is a Boolean parameter.
type BoolParam bool

// TypeName implements Parameter.
func (BoolParam) TypeName() string { return "Boolean" }

func (p BoolParam) encode(buf *bytes.Buffer) {
	buf.WriteString(`<Parameter Type="Boolean">`)
	buf.WriteString(strconv.FormatBool(bool(p)))
	buf.WriteString(`</Parameter>`)
}

// NullParam is an explicit null argument.
type NullParam struct{}

// TypeName implements Parameter.
func (NullParam) TypeName() string { return "Null" }

func (NullParam) encode(buf *bytes.Buffer) {
	buf.WriteString(`<Parameter Type="Null" />`)
}

// ObjectRefParam passes an object path of the same graph as an argument.
type ObjectRefParam int

// TypeName implements Parameter.
func (ObjectRefParam) TypeName() string { return "" }

func (p ObjectRefParam) encode(buf *bytes.Buffer) {
	buf.WriteString(`<Parameter ObjectPathId="`)
	buf.WriteString(strconv.Itoa(int(p)))
	buf.WriteString(`" />`)
}

// String returns a String parameter.
func String(s string) Parameter { return StringParam(s) }

// Int32 returns an Int32 parameter.
func Int32(n int32) Parameter { return Int32Param(n) }

// Int32Of returns an Int32 parameter for n.
// It panics when n does not fit in 32 bits; callers must not rely on
// silent truncation.
func Int32Of(n int) Parameter {
	if n < math.MinInt32 || n > math.MaxInt32 {
		panic(fmt.Sprintf("csom: Int32 parameter out of range: %d", n))
	}
	return Int32Param(int32(n))
}

// Guid returns a Guid parameter.
func Guid(id uuid.UUID) Parameter { return GuidParam(id) }

// MustGuid parses s (with or without braces) and returns a Guid parameter.
// It panics on a malformed Guid.
func MustGuid(s string) Parameter {
	id, err := uuid.Parse(strings.Trim(s, "{}"))
	if err != nil {
		panic(fmt.Sprintf("csom: malformed Guid parameter %q: %v", s, err))
	}
	return GuidParam(id)
}

// Bool returns a Boolean parameter.
func Bool(b bool) Parameter { return BoolParam(b) }

// Null returns a Null parameter.
func Null() Parameter { return NullParam{} }

// ObjectRef returns a parameter referencing object path id.
// The reference is checked like any parent id when the parameter is added
// to a graph.
func ObjectRef(id int) Parameter { return ObjectRefParam(id) }

// EncodeParameter renders p as its wire fragment.
func EncodeParameter(p Parameter) string {
	var buf bytes.Buffer
	p.encode(&buf)
	return buf.String()
}

func encodeParameters(buf *bytes.Buffer, params []Parameter) {
	buf.WriteString(`<Parameters>`)
	for _, p := range params {
		p.encode(buf)
	}
	buf.WriteString(`</Parameters>`)
}

func bracedGuid(id uuid.UUID) string {
	return "{" + id.String() + "}"
}

var xmlEscaper = strings.NewReplacer(
	`&`, "&amp;",
	`<`, "&lt;",
	`>`, "&gt;",
	`"`, "&quot;",
	`'`, "&apos;",
)

// EscapeXML applies the five predefined XML entity substitutions and
// nothing else.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
