package taxonomy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/google/uuid"

	"github.com/roach88/csom/internal/csom"
	"github.com/roach88/csom/internal/payload"
)

// SessionTypeID is the type id of Microsoft.SharePoint.Taxonomy.TaxonomySession.
var SessionTypeID = uuid.MustParse("981cbc68-9edc-4f8d-872f-71146fcbb84f")

// DefaultLCID is the language used when a request names none (en-US).
const DefaultLCID = 1033

// Operation names, recorded with every round trip.
const (
	OpAddTermGroup   = "term group add"
	OpListTermGroups = "term group list"
	OpAddTermSet     = "term set add"
	OpAddTerm        = "term add"
)

// Session names under which phase 1 remembers identities for phase 2.
const (
	termStoreKey     = "termStore"
	createdObjectKey = "createdObject"
)

// Service runs taxonomy operations through an Executor.
type Service struct {
	exec       csom.Executor
	objectIDs  ObjectIDGenerator
	operations OperationIDGenerator
	lcid       int
}

// Option configures a Service.
type Option func(*Service)

// WithObjectIDs sets the generator of Guids for objects created without one.
func WithObjectIDs(g ObjectIDGenerator) Option {
	return func(s *Service) { s.objectIDs = g }
}

// WithOperationIDs sets the generator of operation ids.
func WithOperationIDs(g OperationIDGenerator) Option {
	return func(s *Service) { s.operations = g }
}

// WithLCID sets the default language of created term sets and terms.
func WithLCID(lcid int) Option {
	return func(s *Service) {
		if lcid > 0 {
			s.lcid = lcid
		}
	}
}

// NewService creates a Service.
func NewService(exec csom.Executor, opts ...Option) *Service {
	s := &Service{
		exec:       exec,
		objectIDs:  RandomIDs{},
		operations: UUIDv7Generator{},
		lcid:       DefaultLCID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LCID returns the default language of the service.
func (s *Service) LCID() int {
	return s.lcid
}

// NewObjectID returns a Guid from the service's object id generator.
func (s *Service) NewObjectID() uuid.UUID {
	return s.objectIDs.NewID()
}

// createPlan describes one two-phase create.
type createPlan struct {
	operation string
	name      string

	// create adds the create call below the term store path and returns
	// the path of the new object.
	create func(g *csom.Graph, store int) int

	// refine adds the phase 2 actions on the resumed object. Nil when the
	// caller asked for no refinement.
	refine func(g *csom.Graph, obj int)

	// updates are merged into the phase 1 snapshot after phase 2 succeeds.
	updates payload.Object
}

// runCreate executes plan and returns the created object.
func (s *Service) runCreate(ctx context.Context, plan createPlan) (payload.Object, error) {
	opID := s.operations.Generate()
	session := csom.NewSession()

	g := csom.NewGraph()
	store := termStorePath(g)
	created := plan.create(g, store)
	g.Instantiate(created)
	createdIdentity := g.QueryIdentity(created)
	createdProps := g.QueryProperties(created, nil)
	storeIdentity := g.QueryIdentity(store)

	res, err := s.exec.Execute(ctx, csom.Call{Operation: plan.operation, OperationID: opID, Phase: 1, Graph: g})
	if err != nil {
		return nil, err
	}
	if err := res.Capture(session, termStoreKey, storeIdentity); err != nil {
		return nil, err
	}
	if err := res.Capture(session, createdObjectKey, createdIdentity); err != nil {
		return nil, err
	}
	snapshot, ok := res.Object(createdProps)
	if !ok {
		return nil, &csom.ProtocolViolationError{
			Message:    fmt.Sprintf("properties of the created object (id %d) are not an object", createdProps),
			MissingIDs: []int{createdProps},
		}
	}
	snapshot = normalizeObject(snapshot)

	slog.Info("object created",
		"operation", plan.operation,
		"operation_id", opID,
		"name", plan.name,
		"id", idOf(snapshot))

	if plan.refine == nil {
		return snapshot, nil
	}

	g2, err := refinementGraph(session, plan.refine)
	if err != nil {
		return snapshot, &csom.PartialSuccessError{Operation: plan.operation, Phase: 2, Err: err}
	}
	if _, err := s.exec.Execute(ctx, csom.Call{Operation: plan.operation, OperationID: opID, Phase: 2, Graph: g2}); err != nil {
		slog.Warn("refinement failed after create",
			"operation", plan.operation,
			"operation_id", opID,
			"id", idOf(snapshot),
			"error", err)
		return snapshot, &csom.PartialSuccessError{Operation: plan.operation, Phase: 2, Err: err}
	}
	return snapshot.Merge(plan.updates), nil
}

// refinementGraph resumes at the created object and the term store, adds
// the refinements and commits.
func refinementGraph(session *csom.Session, refine func(g *csom.Graph, obj int)) (*csom.Graph, error) {
	objTok, err := session.Recall(createdObjectKey)
	if err != nil {
		return nil, err
	}
	storeTok, err := session.Recall(termStoreKey)
	if err != nil {
		return nil, err
	}

	g := csom.NewGraph()
	obj := g.Identity(objTok)
	store := g.Identity(storeTok)
	refine(g, obj)
	g.Commit(store)
	return g, g.Err()
}

// termStorePath adds TaxonomySession -> default site collection term store.
func termStorePath(g *csom.Graph) int {
	session := g.StaticMethod(SessionTypeID, "GetTaxonomySession")
	return g.Method(session, "GetDefaultSiteCollectionTermStore")
}

// groupPath adds the lookup of ref below the term store.
func groupPath(g *csom.Graph, store int, ref resolvedRef) int {
	groups := g.Property(store, "Groups")
	return ref.lookup(g, groups)
}

// resolvedRef is a validated GroupRef or TermSetRef.
type resolvedRef struct {
	id   uuid.UUID
	name string
}

func (r resolvedRef) byID() bool {
	return r.id != uuid.Nil
}

func (r resolvedRef) lookup(g *csom.Graph, collection int) int {
	if r.byID() {
		return g.Method(collection, "GetById", csom.Guid(r.id))
	}
	return g.Method(collection, "GetByName", csom.String(r.name))
}

func resolveRef(field, id, name string) (resolvedRef, error) {
	switch {
	case id != "" && name != "":
		return resolvedRef{}, &InvalidArgumentError{Field: field, Message: "specify either an id or a name, not both"}
	case id != "":
		u, err := ParseGuid(field+" id", id)
		if err != nil {
			return resolvedRef{}, err
		}
		return resolvedRef{id: u}, nil
	case name != "":
		return resolvedRef{name: name}, nil
	}
	return resolvedRef{}, &InvalidArgumentError{Field: field, Message: "an id or a name is required"}
}

// objectID returns the caller's Guid or a generated one.
func (s *Service) objectID(field, id string) (uuid.UUID, error) {
	if id == "" {
		return s.objectIDs.NewID(), nil
	}
	return ParseGuid(field, id)
}

// lcidOr returns lcid, or the service default when it is zero. Values
// outside 1..MaxInt32 are rejected before any graph is built.
func (s *Service) lcidOr(lcid int) (int, error) {
	if lcid == 0 {
		lcid = s.lcid
	}
	if lcid <= 0 || lcid > math.MaxInt32 {
		return 0, &InvalidArgumentError{
			Field:   "lcid",
			Value:   strconv.Itoa(lcid),
			Message: fmt.Sprintf("must be between 1 and %d", math.MaxInt32),
		}
	}
	return lcid, nil
}

// normalizeObject returns a copy of obj with its Id unwrapped.
func normalizeObject(obj payload.Object) payload.Object {
	out := obj.Clone()
	if id, ok := out.Str("Id"); ok {
		out["Id"] = payload.String(NormalizeGuid(id))
	}
	return out
}

func idOf(obj payload.Object) string {
	id, _ := obj.Str("Id")
	return id
}

func stringsObject(m map[string]string) payload.Object {
	obj := make(payload.Object, len(m))
	for k, v := range m {
		obj[k] = payload.String(v)
	}
	return obj
}
