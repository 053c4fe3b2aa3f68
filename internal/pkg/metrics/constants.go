package metrics

// Component label values used by app-level metrics.
const (
	ComponentWatcher  = "watcher"
	ComponentProvider = "provider"
	ComponentInvoker  = "invoker"
	ComponentRegistry = "registry"
	ComponentSink     = "sink"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
