// Package scraper provides the client for the external SENCE scraping
// service. The service drives a headless browser against sence.cl using
// the session cookies captured in the operator's browser; this package
// only ships requests to it and hands raw results back.
package scraper

import (
	"encoding/json"
	"errors"
)

// ErrInvalidCredentials indicates the request carried no usable SENCE
// session cookies, so the remote service cannot authenticate.
var ErrInvalidCredentials = errors.New("no valid session credentials provided")

// Cookie is a browser cookie captured from an authenticated SENCE session.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// FetchRequest asks the remote service to scrape sworn-declaration data
// for a set of SENCE course codes.
type FetchRequest struct {
	// Cookies authenticate the scraping session against sence.cl
	Cookies []Cookie `json:"cookies"`

	// Otec is the training-provider code to operate under
	Otec string `json:"otec"`

	// DeclarationType selects the declaration flow on the remote side
	DeclarationType string `json:"declarationType"`

	// InputData lists the SENCE course codes to scrape
	InputData []string `json:"inputData"`

	// ContactEmail receives remote-side notifications, if any
	ContactEmail string `json:"contactEmail,omitempty"`
}

// RegisterRequest asks the remote service to register a course in the
// external SENCE platform.
type RegisterRequest struct {
	Cookies []Cookie `json:"cookies"`

	// Otec is the training-provider code to operate under
	Otec string `json:"otec"`

	// SenceCode is the external identifier to register
	SenceCode string `json:"senceCode"`

	// CourseName is the local course name sent along for the remote form
	CourseName string `json:"courseName,omitempty"`

	ContactEmail string `json:"contactEmail,omitempty"`
}

// RegisterResult reports the outcome of a remote course registration.
// RemoteError carries the remote system's own message verbatim; callers
// classify it (e.g. duplicate-record detection) rather than this package.
type RegisterResult struct {
	Success     bool   `json:"success"`
	RemoteError string `json:"error,omitempty"`
}

// FetchResult is the remote service's answer to a FetchRequest. Payload is
// kept opaque here: decoding and per-record validation belong to the
// reconciliation layer, which owns the malformed-payload taxonomy.
type FetchResult struct {
	Payload json.RawMessage
}
