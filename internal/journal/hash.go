package journal

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/csom/internal/payload"
)

// DomainRoundTrip separates round-trip ids from any other hash.
const DomainRoundTrip = "csom/round-trip/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data) as hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RoundTripID computes the content-addressed id of a round trip.
// The same request sent in the same phase of the same operation always
// yields the same id.
func RoundTripID(operationID string, phase int, request []byte) (string, error) {
	canonical, err := payload.MarshalCanonical(payload.Object{
		"operation_id": payload.String(operationID),
		"phase":        payload.Int(phase),
		"request":      payload.String(request),
	})
	if err != nil {
		return "", fmt.Errorf("RoundTripID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRoundTrip, canonical), nil
}
