package ir

// ActionRef names a mutating registry operation.
// Format: "Entity.action", e.g. "Equipment.register".
type ActionRef string

// Action references understood by the engine.
const (
	ActionRegister          ActionRef = "Equipment.register"
	ActionSetStatus         ActionRef = "Equipment.setStatus"
	ActionSetLocation       ActionRef = "Equipment.setLocation"
	ActionSetNetwork        ActionRef = "Equipment.setNetwork"
	ActionTransferOwnership ActionRef = "Equipment.transferOwnership"
	ActionAddMaintenance    ActionRef = "Maintenance.add"
)

// Output cases recorded on completions.
const (
	CaseSuccess      = "Success"
	CaseNotFound     = "NotFound"
	CaseUnauthorized = "Unauthorized"
)

// Invocation is a journaled request to run one action.
type Invocation struct {
	ID            string    `json:"id"`    // Content-addressed hash
	Token         string    `json:"token"` // Correlation token (UUIDv7 in production)
	Action        ActionRef `json:"action"`
	Args          Args      `json:"args"`
	Seq           int64     `json:"seq"` // Logical clock
	Caller        Principal `json:"caller"`
	Height        int64     `json:"height"` // Block height the action ran at
	EngineVersion string    `json:"engine_version"`
	IRVersion     string    `json:"ir_version"`
}

// Completion is the journaled outcome of one invocation.
type Completion struct {
	ID           string `json:"id"` // Content-addressed hash
	InvocationID string `json:"invocation_id"`
	OutputCase   string `json:"output_case"`
	Code         int    `json:"code"` // 0 on success, else 404 or 403
	Result       Args   `json:"result"`
	Seq          int64  `json:"seq"`
}
