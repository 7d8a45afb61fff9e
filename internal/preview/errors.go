package preview

// errors.go maps extraction failures to short coded messages that end up in
// a preview's diagnostics. Callers of the HTTP endpoint always get a 200
// with best-effort content, so the code is how they tell "the source is
// empty" apart from "the source could not be read".
//
// # Network (NET001-NET099)
//
//	NET001 - Connection refused
//	NET002 - Timed out
//	NET003 - Host not found
//	NET004 - Request canceled
//
// # Remote response (HTTP001-HTTP099)
//
//	HTTP001 - Source answered with a non-2xx status
//
// # Parsing (PARSE001-PARSE099)
//
//	PARSE001 - Invalid JSON
//	PARSE002 - Expected member missing (features, fields)
//	PARSE003 - ArcGIS error envelope
//	PARSE004 - Invalid CSV
//	PARSE005 - Response larger than the configured limit
//
// # Archives (ZIP001-ZIP099)
//
//	ZIP001 - Not a zip archive
//	ZIP002 - Unsupported entry (encryption, compression method)
//	ZIP003 - Checksum mismatch
//
// # Limits (LIM001-LIM099)
//
//	LIM001 - Too many concurrent previews
//
// ERR000 is the fallback.
//
// Sentinel errors and error types are matched first; the substring patterns
// below catch errors from the network stack that carry no type.

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/JonMunkholm/fieldpreview/internal/zipstream"
)

var (
	// ErrInvalidJSON is returned when a JSON body cannot be parsed.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrMissingMember is returned when a JSON body lacks a required member.
	ErrMissingMember = errors.New("missing member")
	// ErrArcGISError is returned when an ArcGIS server answers with an
	// error envelope instead of data.
	ErrArcGISError = errors.New("arcgis error response")
	// ErrInvalidCSV is returned when a CSV stream cannot be parsed.
	ErrInvalidCSV = errors.New("invalid csv")
	// ErrResponseTooLarge is returned when a body exceeds the read limit.
	ErrResponseTooLarge = errors.New("response too large")
)

// UserMessage is a coded, human-readable description of a failure.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

var (
	msgConnRefused = UserMessage{"Connection to the source was refused", "Check that the source host is reachable", "NET001"}
	msgTimeout     = UserMessage{"The source did not respond in time", "Try again later or use a smaller source", "NET002"}
	msgDNS         = UserMessage{"The source host could not be found", "Check the source URL", "NET003"}
	msgCanceled    = UserMessage{"The request was canceled", "Try again", "NET004"}
	msgHTTPStatus  = UserMessage{"The source answered with an error status", "Check that the source URL is public and correct", "HTTP001"}
	msgInvalidJSON = UserMessage{"The source is not valid JSON", "Check that the URL points at a JSON document", "PARSE001"}
	msgMissing     = UserMessage{"The source is missing expected content", "Check that the URL points at a feature collection or service layer", "PARSE002"}
	msgArcGIS      = UserMessage{"The ArcGIS service reported an error", "Check the layer URL and its sharing settings", "PARSE003"}
	msgInvalidCSV  = UserMessage{"The source is not valid CSV", "Ensure the file is comma-separated with a header row", "PARSE004"}
	msgTooLarge    = UserMessage{"The source response is too large to preview", "Use a smaller layer or file", "PARSE005"}
	msgNotZip      = UserMessage{"The source is not a zip archive", "Check that the .zip URL points at a zip file", "ZIP001"}
	msgZipEntry    = UserMessage{"The archive uses an unsupported format", "Re-create the archive without encryption using deflate", "ZIP002"}
	msgChecksum    = UserMessage{"The archive is corrupted", "Re-upload the archive", "ZIP003"}
	msgBusy        = UserMessage{"Too many previews are running", "Please wait a moment and try again", "LIM001"}
	msgUnknown     = UserMessage{"An unexpected error occurred", "Please try again", "ERR000"}
)

// errorPatterns matches untyped errors case-insensitively. First match wins.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", msgConnRefused},
	{"no such host", msgDNS},
	{"deadline exceeded", msgTimeout},
	{"timeout", msgTimeout},
	{"context canceled", msgCanceled},
}

// MapError returns the coded message for err.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var statusErr *StatusError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, ErrTooManyPreviews):
		return msgBusy
	case errors.As(err, &statusErr):
		return msgHTTPStatus
	case errors.Is(err, ErrResponseTooLarge):
		return msgTooLarge
	case errors.Is(err, ErrArcGISError):
		return msgArcGIS
	case errors.Is(err, ErrMissingMember):
		return msgMissing
	case errors.Is(err, ErrInvalidJSON):
		return msgInvalidJSON
	case errors.Is(err, ErrInvalidCSV):
		return msgInvalidCSV
	case errors.Is(err, zipstream.ErrFormat):
		return msgNotZip
	case errors.Is(err, zipstream.ErrUnsupported):
		return msgZipEntry
	case errors.Is(err, zipstream.ErrChecksum):
		return msgChecksum
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, context.Canceled):
		return msgCanceled
	case errors.As(err, &dnsErr):
		return msgDNS
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return msgUnknown
}
