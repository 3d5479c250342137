package csom

import (
	"slices"

	"github.com/google/uuid"
)

// PathKind identifies how an object path reaches its object.
type PathKind string

const (
	PathStaticMethod   PathKind = "StaticMethod"
	PathMethod         PathKind = "Method"
	PathProperty       PathKind = "Property"
	PathStaticProperty PathKind = "StaticProperty"
	PathConstructor    PathKind = "Constructor"
	PathIdentity       PathKind = "Identity"
)

// ActionKind identifies what an action does with its target.
type ActionKind string

const (
	ActionObjectPath          ActionKind = "ObjectPath"
	ActionObjectIdentityQuery ActionKind = "ObjectIdentityQuery"
	ActionQuery               ActionKind = "Query"
	ActionSetProperty         ActionKind = "SetProperty"
	ActionMethod              ActionKind = "Method"
)

// CommitMethod is the term store method that flushes pending mutations.
const CommitMethod = "CommitAll"

// ObjectPath is one node of the ObjectPaths section.
type ObjectPath struct {
	ID         int
	Kind       PathKind
	ParentID   int // 0 when the path has no parent
	Name       string
	TypeID     uuid.UUID // static members and constructors only
	Parameters []Parameter
	Identity   IdentityToken // Identity paths only
}

// Action is one node of the Actions section.
type Action struct {
	ID         int
	Kind       ActionKind
	PathID     int
	Name       string // SetProperty and Method only
	Parameters []Parameter
	Selection  *Selection // Query only
}

// Retrieves reports whether the server must answer this action with an
// (id, payload) pair.
func (a Action) Retrieves() bool {
	return a.Kind == ActionObjectIdentityQuery || a.Kind == ActionQuery
}

// Selection describes which properties a Query projects.
// A nil *Selection selects all scalar properties.
type Selection struct {
	SelectAll  bool
	Properties []PropertySelection
	ChildItems *Selection // collection targets only
}

// PropertySelection names one property of a Selection. When Query is set
// the property is an object and Query projects it.
type PropertySelection struct {
	Name  string
	Query *Selection
}

// SelectAll returns a selection of every scalar property.
func SelectAll() *Selection {
	return &Selection{SelectAll: true}
}

// Select returns a selection of the named scalar properties only.
func Select(names ...string) *Selection {
	sel := &Selection{}
	for _, n := range names {
		sel.Properties = append(sel.Properties, PropertySelection{Name: n})
	}
	return sel
}

// Graph accumulates the object paths and actions of one request.
//
// Every builder method returns the id of the node it added so callers can
// wire children to it. Parent and target ids must name object paths of the
// same graph. The first violation is recorded; the offending call returns 0
// and adds nothing, and Err and Serialize report the violation.
type Graph struct {
	ids     *Allocator
	paths   []ObjectPath
	actions []Action
	pathIDs map[int]struct{}
	err     error
	sealed  bool
}

// NewGraph creates an empty graph with its own allocator.
func NewGraph() *Graph {
	return NewGraphWith(NewAllocator())
}

// NewGraphWith creates an empty graph drawing ids from ids.
func NewGraphWith(ids *Allocator) *Graph {
	return &Graph{
		ids:     ids,
		pathIDs: make(map[int]struct{}),
	}
}

// Err returns the first construction error, if any.
func (g *Graph) Err() error {
	return g.err
}

// Sealed reports whether the graph was serialized.
func (g *Graph) Sealed() bool {
	return g.sealed
}

// StaticMethod adds a static method call on the type typeID.
func (g *Graph) StaticMethod(typeID uuid.UUID, name string, params ...Parameter) int {
	if !g.check("StaticMethod", 0, params) {
		return 0
	}
	return g.addPath(ObjectPath{Kind: PathStaticMethod, TypeID: typeID, Name: name, Parameters: params})
}

// StaticProperty adds a static property access on the type typeID.
func (g *Graph) StaticProperty(typeID uuid.UUID, name string) int {
	if !g.check("StaticProperty", 0, nil) {
		return 0
	}
	return g.addPath(ObjectPath{Kind: PathStaticProperty, TypeID: typeID, Name: name})
}

// Constructor adds a client-side constructed object of type typeID.
func (g *Graph) Constructor(typeID uuid.UUID, params ...Parameter) int {
	if !g.check("Constructor", 0, params) {
		return 0
	}
	return g.addPath(ObjectPath{Kind: PathConstructor, TypeID: typeID, Parameters: params})
}

// Method adds an instance method call on the object at parentID.
func (g *Graph) Method(parentID int, name string, params ...Parameter) int {
	if !g.check("Method", parentID, params) {
		return 0
	}
	return g.addPath(ObjectPath{Kind: PathMethod, ParentID: parentID, Name: name, Parameters: params})
}

// Property adds a property access on the object at parentID.
func (g *Graph) Property(parentID int, name string) int {
	if !g.check("Property", parentID, nil) {
		return 0
	}
	return g.addPath(ObjectPath{Kind: PathProperty, ParentID: parentID, Name: name})
}

// Identity adds a parentless path resuming at a previously captured object.
// A zero token references nothing and is recorded as a dangling reference.
func (g *Graph) Identity(tok IdentityToken) int {
	if !g.check("Identity", 0, nil) {
		return 0
	}
	if tok.IsZero() {
		g.err = &DanglingReferenceError{Op: "Identity", Ref: 0}
		return 0
	}
	return g.addPath(ObjectPath{Kind: PathIdentity, Identity: tok})
}

// Instantiate adds an ObjectPath action so the server materializes the
// object at pathID.
func (g *Graph) Instantiate(pathID int) int {
	if !g.check("Instantiate", pathID, nil) {
		return 0
	}
	return g.addAction(Action{Kind: ActionObjectPath, PathID: pathID})
}

// QueryIdentity asks the server for the identity token of the object at
// pathID.
func (g *Graph) QueryIdentity(pathID int) int {
	if !g.check("QueryIdentity", pathID, nil) {
		return 0
	}
	return g.addAction(Action{Kind: ActionObjectIdentityQuery, PathID: pathID})
}

// QueryProperties asks the server for a property snapshot of the object at
// pathID. A nil selection selects all scalar properties.
func (g *Graph) QueryProperties(pathID int, sel *Selection) int {
	if !g.check("QueryProperties", pathID, nil) {
		return 0
	}
	if sel == nil {
		sel = SelectAll()
	}
	return g.addAction(Action{Kind: ActionQuery, PathID: pathID, Selection: sel})
}

// SetProperty assigns value to property name of the object at pathID.
func (g *Graph) SetProperty(pathID int, name string, value Parameter) int {
	if !g.check("SetProperty", pathID, []Parameter{value}) {
		return 0
	}
	return g.addAction(Action{Kind: ActionSetProperty, PathID: pathID, Name: name, Parameters: []Parameter{value}})
}

// InvokeMethod calls method name on the object at pathID for its side
// effect.
func (g *Graph) InvokeMethod(pathID int, name string, params ...Parameter) int {
	if !g.check("InvokeMethod", pathID, params) {
		return 0
	}
	return g.addAction(Action{Kind: ActionMethod, PathID: pathID, Name: name, Parameters: params})
}

// Commit adds the terminal CommitAll on the term store at rootID.
func (g *Graph) Commit(rootID int) int {
	return g.InvokeMethod(rootID, CommitMethod)
}

// Paths returns a copy of the object paths in allocation order.
func (g *Graph) Paths() []ObjectPath {
	return slices.Clone(g.paths)
}

// Actions returns a copy of the actions in allocation order.
func (g *Graph) Actions() []Action {
	return slices.Clone(g.actions)
}

// RetrievalIDs returns the ids of all actions that must be answered.
func (g *Graph) RetrievalIDs() []int {
	var ids []int
	for _, a := range g.actions {
		if a.Retrieves() {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// IsPath reports whether id is an object path of this graph.
func (g *Graph) IsPath(id int) bool {
	_, ok := g.pathIDs[id]
	return ok
}

// check validates a builder call and records the first failure.
func (g *Graph) check(op string, ref int, params []Parameter) bool {
	if g.err != nil {
		return false
	}
	if g.sealed {
		g.err = &GraphSealedError{Op: op}
		return false
	}
	if requiresRef(op) && !g.IsPath(ref) {
		g.err = &DanglingReferenceError{Op: op, Ref: ref}
		return false
	}
	for _, p := range params {
		if r, ok := p.(ObjectRefParam); ok && !g.IsPath(int(r)) {
			g.err = &DanglingReferenceError{Op: op + " parameter", Ref: int(r)}
			return false
		}
	}
	return true
}

// requiresRef lists the calls whose reference may not be omitted.
func requiresRef(op string) bool {
	switch op {
	case "StaticMethod", "StaticProperty", "Constructor", "Identity":
		return false
	}
	return true
}

func (g *Graph) addPath(p ObjectPath) int {
	p.ID = g.ids.Next()
	g.paths = append(g.paths, p)
	g.pathIDs[p.ID] = struct{}{}
	return p.ID
}

func (g *Graph) addAction(a Action) int {
	a.ID = g.ids.Next()
	g.actions = append(g.actions, a)
	return a.ID
}
