package session

import (
	"github.com/aussiebot/console/internal/configtree"
	"github.com/aussiebot/console/internal/value"
)

// Event is a user-driven (or timer-driven) input to the session machine.
// Transport frames arrive on their own channel and are not part of this
// union.
type Event interface {
	isEvent()
}

// SelectUser chooses an identity from the roster during authentication.
type SelectUser struct {
	Name string `json:"name"`
}

// RequestCode asks the backend to generate and deliver a login code for
// the selected user.
type RequestCode struct{}

// SubmitCode submits the received login code, triggering a login attempt.
type SubmitCode struct {
	Code string `json:"code"`
}

// SetField replaces the named field's value on the currently selected
// config entry and revalidates it.
type SetField struct {
	Field string      `json:"field"`
	Value value.Value `json:"value"`
}

// SetName renames the currently selected config entry.
type SetName struct {
	Name string `json:"name"`
}

// Select moves the cursor. Out-of-range indexes are clamped.
type Select struct {
	Cursor configtree.Cursor `json:"cursor"`
}

// Delete removes the entry at the given cursor and repairs the selection.
type Delete struct {
	Cursor configtree.Cursor `json:"cursor"`
}

// Revert restores the last acknowledged config snapshot and cursor.
type Revert struct{}

// AddRequest opens the add-command flow for a category, if the schema
// offers any types there.
type AddRequest struct {
	Category configtree.Category `json:"category"`
}

// AddChoose picks a command type inside the add-command flow.
type AddChoose struct {
	Type string `json:"commandType"`
}

// AddCancel abandons the add-command flow.
type AddCancel struct{}

// Save requests that the current config be transmitted to the backend.
type Save struct{}

// Dismiss closes the active alert state.
type Dismiss struct{}

// DiscardAndReload answers an external-change alert by dropping local
// edits and re-requesting the config.
type DiscardAndReload struct{}

// saveTimeout is injected by the save-acknowledgment timer. The
// generation counter discards fires from an already-cancelled save.
type saveTimeout struct {
	gen uint64
}

func (SelectUser) isEvent()       {}
func (RequestCode) isEvent()      {}
func (SubmitCode) isEvent()       {}
func (SetField) isEvent()         {}
func (SetName) isEvent()          {}
func (Select) isEvent()           {}
func (Delete) isEvent()           {}
func (Revert) isEvent()           {}
func (AddRequest) isEvent()       {}
func (AddChoose) isEvent()        {}
func (AddCancel) isEvent()        {}
func (Save) isEvent()             {}
func (Dismiss) isEvent()          {}
func (DiscardAndReload) isEvent() {}
func (saveTimeout) isEvent()      {}
