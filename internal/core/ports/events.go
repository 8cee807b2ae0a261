package ports

// EventSink receives user-visible messages of a build session.
//
//go:generate mockgen -source=events.go -destination=mocks/mock_events.go -package=mocks
type EventSink interface {
	// Output reports regular progress output.
	Output(session, message string)
	// Warning reports a problem that does not fail the build.
	Warning(session, message string)
	// Error reports a counted error.
	Error(session, message string)
}

// ErrorReporter counts errors without unwinding the caller.
// It is satisfied by *errpolicy.Policy.
type ErrorReporter interface {
	// Error reports message as one error.
	Error(message string)
	// Report reports err as one error.
	Report(err error)
}
