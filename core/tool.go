package core

// Tool is a named, schema-described callable capability exposed by a
// connected provider. ID is globally unique across all providers connected
// to one session; Name is the identifier the provider itself understands.
type Tool struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	ProviderID   string         `json:"provider_id"`
	ProviderName string         `json:"provider_name"`
	Description  string         `json:"description"`
	InputSchema  map[string]any `json:"input_schema,omitempty"`
}

// ToolCallRequest is a structured tool invocation extracted from free-form
// model output. Arguments holds the parsed JSON payload when parsing
// succeeded, otherwise the raw argument text verbatim.
type ToolCallRequest struct {
	// Seq is a locally-unique sequence id in left-to-right order of
	// appearance, used to correlate the request with its eventual state.
	Seq       int
	ToolID    string
	Arguments any
	// Raw is the unparsed text of the matched block, kept for diagnostics.
	Raw string
}

// ToolCallStatus is the lifecycle state of one extracted tool call.
//
// Transitions: pending -> invoking -> done | error. No other transitions
// occur.
type ToolCallStatus string

const (
	// ToolCallPending means the call has been extracted and resolved but not
	// yet dispatched.
	ToolCallPending ToolCallStatus = "pending"
	// ToolCallInvoking means the provider call is in flight.
	ToolCallInvoking ToolCallStatus = "invoking"
	// ToolCallDone means the provider returned a result.
	ToolCallDone ToolCallStatus = "done"
	// ToolCallError means the provider call failed or timed out.
	ToolCallError ToolCallStatus = "error"
)

// ToolCallState tracks one extracted call through its lifecycle within a
// turn. A slice of these represents the turn's complete tool activity and is
// the unit reported to progress observers.
type ToolCallState struct {
	Seq       int            `json:"seq"`
	Tool      Tool           `json:"tool"`
	Arguments any            `json:"arguments,omitempty"`
	Status    ToolCallStatus `json:"status"`
	// Result holds the formatted provider result once Status is done.
	Result string `json:"result,omitempty"`
	// Err holds the failure message once Status is error.
	Err string `json:"error,omitempty"`
}
