package journal

import (
	"context"
	"fmt"

	"github.com/roach88/csom/internal/csom"
)

// Record stores rt. Recording the same request for the same operation and
// phase twice keeps the first row.
func (j *Journal) Record(ctx context.Context, rt csom.RoundTrip) error {
	id, err := RoundTripID(rt.OperationID, rt.Phase, rt.Request)
	if err != nil {
		return fmt.Errorf("record round trip: %w", err)
	}

	var response any
	if rt.Response != nil {
		response = string(rt.Response)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO round_trips
		(id, operation_id, operation, phase, endpoint, request, response, outcome, error_code, error_message, trace_correlation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		rt.OperationID,
		rt.Operation,
		rt.Phase,
		rt.Endpoint,
		string(rt.Request),
		response,
		string(rt.Outcome),
		string(rt.ErrorCode),
		rt.ErrorMessage,
		rt.TraceCorrelationID,
	)
	if err != nil {
		return fmt.Errorf("record round trip: %w", err)
	}
	return nil
}
