package shell

// Exported for white-box testing.
var (
	ResolveEnvironment = resolveEnvironment
	LookPath           = lookPath
)

// WithEnviron replaces the environment the executor inherits from.
func (e *Executor) WithEnviron(environ []string) *Executor {
	e.environ = func() []string { return environ }
	return e
}
