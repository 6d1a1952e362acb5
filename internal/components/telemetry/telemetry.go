// Package telemetry is the reporting surface every component writes to.
//
// Components never log directly, they report through an API so tests can
// assert on what was reported (see RecordingAPI) and binaries decide where
// reports end up (see SlogAPI and OtelAPI).
package telemetry

import "fmt"

// API is implemented by every reporting backend.
//
// note: fault injection point
type API interface {
	// ReportBroken reports a component that failed in a way someone should look into.
	//
	// id names the component and the operation, not the detail of what went
	// wrong: a failed detail page request in the storefront client is
	// `client.complete-data-by-id`, the status or error goes in params.
	// Packages keep their ids in `report_...` constants.
	//
	// ids are lowercase, use underscores inside component names and dashes
	// inside method names.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something unexpected that was recovered from, like
	// a failed attempt that will be retried. ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug reports information only useful while developing.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the current value of a quantity (ex. the number of
	// cached entries). Values are samples over time and are never summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id (and debug message) with a namespace, nesting
// scopes yields "outer: inner: id".
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scope(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}
