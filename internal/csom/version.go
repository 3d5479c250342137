package csom

// Envelope version constants.
const (
	// SchemaVersion is the client query schema version sent on every request.
	SchemaVersion = "15.0.0.0"

	// LibraryVersion is the client library version sent on every request.
	LibraryVersion = "16.0.0.0"

	// Namespace is the XML namespace of the Request element.
	Namespace = "http://schemas.microsoft.com/sharepoint/clientquery/2009"

	// DefaultApplicationName is used when the caller names no application.
	DefaultApplicationName = "csom"

	// EndpointPath is appended to a site URL to reach ProcessQuery.
	EndpointPath = "/_vti_bin/client.svc/ProcessQuery"
)
