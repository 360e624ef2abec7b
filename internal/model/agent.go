package model

// Transport identifies the mechanism used to reach an agent back-end.
type Transport string

const (
	TransportAsyncAPI Transport = "async_api"
	TransportLocalCLI Transport = "local_cli"
	TransportLocalTUI Transport = "local_tui"
)

// AgentDescriptor is the static profile of one agent back-end.
type AgentDescriptor struct {
	AgentID        string
	Transport      Transport
	Capabilities   map[Capability]bool
	MaxContextLines int
	RequiresAuth   bool

	// FullContext mirrors the spec's "full_context" selection tiebreak
	// signal; it is distinct from the full_context capability flag because
	// an agent can expose the capability to callers while still losing the
	// max_context_lines tiebreak against another full-context agent.
	FullContext bool
}

// HasCapability reports whether d advertises cap.
func (d AgentDescriptor) HasCapability(cap Capability) bool {
	return d.Capabilities[cap]
}

// AgentAvailability is recomputed on every classification and cached at most
// for the lifetime of one routing call.
type AgentAvailability struct {
	AgentID   string
	Available bool
	Reason    string
	Details   map[string]interface{}
}
