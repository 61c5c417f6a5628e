package game

type ActionKind string

const (
	ActionCreate     ActionKind = "session.create"
	ActionJoin       ActionKind = "session.join"
	ActionLeave      ActionKind = "session.leave"
	ActionReady      ActionKind = "session.ready"
	ActionSubmitWord ActionKind = "turn.submitWord"
	ActionUsePowerUp ActionKind = "turn.usePowerUp"
	ActionTyping     ActionKind = "turn.typing"
)

// Action is a decoded player request. Kind selects which fields are read.
type Action struct {
	Kind      ActionKind
	SessionID string
	Ready     bool
	Word      string
	PowerUp   PowerUpKind
	Text      string
}

// Identity is the authenticated player behind an action.
type Identity struct {
	PlayerID string
	Name     string
}

// Result is the synchronous reply to an action.
type Result struct {
	SessionID  string      `json:"sessionId,omitempty"`
	Snapshot   *Snapshot   `json:"snapshot,omitempty"`
	WordResult *WordResult `json:"wordResult,omitempty"`
}
