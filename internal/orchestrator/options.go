package orchestrator

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger installs a debug logger. The default is a no-op logger.
func WithLogger(log *DebugLogger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithEventHandler installs a handler for loop events.
func WithEventHandler(h EventHandler) Option {
	return func(o *Orchestrator) {
		o.handler = h
	}
}
