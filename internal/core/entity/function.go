package entity

import "time"

// SubscriptionKind names the event source of a function subscription. Only
// SubscriptionStream subscriptions are driven by the watcher.
type SubscriptionKind string

const SubscriptionStream SubscriptionKind = "stream"

// Subscription is one entry of a function's event list. The zero value of
// Disabled means the subscription is active.
type Subscription struct {
	Kind     SubscriptionKind
	Arn      string
	Disabled bool
}

// FunctionDefinition describes a deployed function as declared in the service
// file. Events keep their declaration order.
type FunctionDefinition struct {
	Name        string
	Handler     string
	Environment map[string]string
	Timeout     time.Duration
	Events      []Subscription
}

// ServiceDefinition is the parsed service file. Functions keep declaration order.
type ServiceDefinition struct {
	Service             string
	Region              string
	ProviderEnvironment map[string]string
	Functions           []FunctionDefinition
}

// Function returns the definition named name.
func (s *ServiceDefinition) Function(name string) (*FunctionDefinition, bool) {
	for i := range s.Functions {
		if s.Functions[i].Name == name {
			return &s.Functions[i], true
		}
	}
	return nil, false
}

// CompileStats is reported by the handler build step.
type CompileStats struct {
	Functions int
	Duration  time.Duration
	Output    string
}
