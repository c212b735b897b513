package state

// LogEvent describes a failure the store recovered locally instead of
// returning to the caller: a panicking subscriber, an unavailable medium, a
// codec error or an exceeded notification depth.
type LogEvent struct {
	Op   string
	Path string
	Key  string
	Err  error
}

// Logger records store events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}
