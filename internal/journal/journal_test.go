package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/csom/internal/csom"
)

func createTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func testRoundTrip(opID string, phase int, request string) csom.RoundTrip {
	return csom.RoundTrip{
		OperationID:        opID,
		Operation:          "term set add",
		Phase:              phase,
		Endpoint:           "https://contoso.sharepoint.com/_vti_bin/client.svc/ProcessQuery",
		Request:            []byte(request),
		Response:           []byte(`[{"ErrorInfo":null}]`),
		Outcome:            csom.OutcomeOK,
		TraceCorrelationID: "trace-1",
	}
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer j.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("journal file was not created")
	}
	v, err := j.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion() failed: %v", err)
	}
	if v != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", v, currentSchemaVersion)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		j, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		if i == 0 {
			if err := j.Record(context.Background(), testRoundTrip("op-1", 1, "<Request />")); err != nil {
				t.Fatalf("Record() failed: %v", err)
			}
		}
		j.Close()
	}

	j, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer j.Close()
	entries, err := j.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries after reopen, want 1", len(entries))
	}
}

func TestRecord_RoundTripsInOrder(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	first := testRoundTrip("op-1", 1, "<Request>1</Request>")
	second := testRoundTrip("op-1", 2, "<Request>2</Request>")
	second.Response = nil
	second.Outcome = csom.OutcomeTransport
	second.ErrorMessage = "connection reset"
	second.TraceCorrelationID = ""

	for _, rt := range []csom.RoundTrip{first, second} {
		if err := j.Record(ctx, rt); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	entries, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Phase != 1 || entries[1].Phase != 2 {
		t.Errorf("phases = %d,%d, want 1,2", entries[0].Phase, entries[1].Phase)
	}
	if entries[0].Seq >= entries[1].Seq {
		t.Errorf("seq not increasing: %d, %d", entries[0].Seq, entries[1].Seq)
	}
	if !entries[0].HasResponse || entries[0].Response != `[{"ErrorInfo":null}]` {
		t.Errorf("first response = %q (has=%v)", entries[0].Response, entries[0].HasResponse)
	}
	if entries[1].HasResponse {
		t.Error("transport failure should store no response")
	}
	if entries[1].Outcome != csom.OutcomeTransport || entries[1].ErrorMessage != "connection reset" {
		t.Errorf("second entry = %+v", entries[1])
	}
}

func TestRecord_Idempotent(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	rt := testRoundTrip("op-1", 1, "<Request />")

	for i := 0; i < 3; i++ {
		if err := j.Record(ctx, rt); err != nil {
			t.Fatalf("Record() #%d failed: %v", i, err)
		}
	}

	entries, err := j.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestRecord_BusinessError(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	rt := testRoundTrip("op-9", 1, "<Request />")
	rt.Outcome = csom.OutcomeFailed
	rt.ErrorCode = csom.ErrCodeBusiness
	rt.ErrorMessage = "A term set already exists with the name specified."
	if err := j.Record(ctx, rt); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	e, err := j.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if e.ErrorCode != csom.ErrCodeBusiness {
		t.Errorf("ErrorCode = %q", e.ErrorCode)
	}
	if e.ErrorMessage != rt.ErrorMessage {
		t.Errorf("ErrorMessage = %q", e.ErrorMessage)
	}
	wantID, _ := RoundTripID("op-9", 1, []byte("<Request />"))
	if e.ID != wantID {
		t.Errorf("ID = %s, want %s", e.ID, wantID)
	}
}

func TestList_Filter(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()

	a := testRoundTrip("op-1", 1, "a")
	b := testRoundTrip("op-2", 1, "b")
	b.Operation = "term group list"
	c := testRoundTrip("op-2", 2, "c")
	for _, rt := range []csom.RoundTrip{a, b, c} {
		if err := j.Record(ctx, rt); err != nil {
			t.Fatalf("Record() failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"a", "b", "c"}},
		{"by operation", Filter{Operation: "term set add"}, []string{"a", "c"}},
		{"by operation id", Filter{OperationID: "op-2"}, []string{"b", "c"}},
		{"both", Filter{Operation: "term group list", OperationID: "op-2"}, []string{"b"}},
		{"limit", Filter{Limit: 2}, []string{"a", "b"}},
		{"none", Filter{OperationID: "missing"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := j.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if entries == nil {
				t.Fatal("List() returned nil, want empty slice")
			}
			got := make([]string, len(entries))
			for i, e := range entries {
				got[i] = e.Request
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	j := createTestJournal(t)

	_, err := j.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestQuery_Raw(t *testing.T) {
	j := createTestJournal(t)
	ctx := context.Background()
	if err := j.Record(ctx, testRoundTrip("op-1", 2, "<Request />")); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	rows, err := j.Query(ctx, "SELECT phase FROM round_trips WHERE operation_id = ?", "op-1")
	if err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	defer rows.Close()

	if !rows.Next() {
		t.Fatal("Query() returned no rows")
	}
	var phase int
	if err := rows.Scan(&phase); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if phase != 2 {
		t.Errorf("phase = %d, want 2", phase)
	}
}

// The journal satisfies the client's Recorder.
var _ csom.Recorder = (*Journal)(nil)
