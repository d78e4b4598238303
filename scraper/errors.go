package scraper

import "fmt"

// ErrorMessage is the user-facing text for every fetch failure.
const ErrorMessage = "HTTP request error. Please check your internet connection and try again"

// ErrorKey is the single key of the map returned by AsMap on failure.
const ErrorKey = "ERROR"

// ErrorKind categorizes fetch failures.
type ErrorKind string

const (
	ErrorKindRequest   ErrorKind = "request"   // the request could not be built
	ErrorKindTransport ErrorKind = "transport" // connection, DNS, timeout, cancellation
	ErrorKindStatus    ErrorKind = "status"    // 4xx or 5xx response
	ErrorKindParse     ErrorKind = "parse"     // body could not be decoded or parsed
)

// FetchError describes why a page could not be fetched.
type FetchError struct {
	Kind       ErrorKind
	URL        string
	StatusCode int
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	switch {
	case e.Kind == ErrorKindStatus:
		return fmt.Sprintf("%s: HTTP %d for %s", e.Kind, e.StatusCode, e.URL)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.URL, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
}

// Unwrap returns the underlying error for error unwrapping
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the message shown to users. All kinds share it.
func (e *FetchError) UserMessage() string {
	return ErrorMessage
}

func newRequestError(url string, cause error) *FetchError {
	return &FetchError{Kind: ErrorKindRequest, URL: url, Cause: cause}
}

func newTransportError(url string, cause error) *FetchError {
	return &FetchError{Kind: ErrorKindTransport, URL: url, Cause: cause}
}

func newStatusError(url string, statusCode int) *FetchError {
	return &FetchError{Kind: ErrorKindStatus, URL: url, StatusCode: statusCode}
}

func newParseError(url string, cause error) *FetchError {
	return &FetchError{Kind: ErrorKindParse, URL: url, Cause: cause}
}
