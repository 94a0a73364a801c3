// pkg/registry/schema.go
package registry

// Implementation states accepted by Validate.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusVerified   = "verified"
)

var knownStatuses = map[string]bool{
	StatusPlanned:    true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusVerified:   true,
}

// ActivityRegistry is the catalog file modelers read to wire shopping
// pipeline tasks into a process.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one job worker task type.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	// Collaborators names the external services the task calls, e.g. "llm".
	Collaborators []string `json:"collaborators,omitempty"`
	// Fallback is what the task returns when its collaborator is down.
	Fallback  string   `json:"fallback,omitempty"`
	Timeout   string   `json:"timeout"`
	Retries   int      `json:"retries"`
	Workflows []string `json:"workflows"`
	Tags      []string `json:"tags"`
}
