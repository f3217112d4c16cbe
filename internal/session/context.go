package session

import (
	"time"

	"github.com/aussiebot/console/internal/configtree"
	"github.com/aussiebot/console/internal/credstore"
	"github.com/aussiebot/console/internal/value"
	"github.com/aussiebot/console/internal/wire"
)

// ChatLog holds logged chat events per platform, keyed by unix-millisecond
// timestamp. Events sharing a timestamp are merged into one bucket.
type ChatLog map[value.Platform]map[int64][]wire.Chat

// Append records one chat event at the given time.
func (l ChatLog) Append(p value.Platform, at time.Time, chat wire.Chat) {
	byTime, ok := l[p]
	if !ok {
		byTime = make(map[int64][]wire.Chat)
		l[p] = byTime
	}
	key := at.UnixMilli()
	byTime[key] = append(byTime[key], chat)
}

func (l ChatLog) clone() ChatLog {
	out := make(ChatLog, len(l))
	for p, byTime := range l {
		dst := make(map[int64][]wire.Chat, len(byTime))
		for ts, bucket := range byTime {
			dst[ts] = append([]wire.Chat(nil), bucket...)
		}
		out[p] = dst
	}
	return out
}

// ModLog holds moderation-action history per platform, newest first.
type ModLog map[value.Platform][]wire.ModActionRow

// Prepend records a fresh moderation action at the head of its
// platform's list.
func (l ModLog) Prepend(p value.Platform, row wire.ModActionRow) {
	l[p] = append([]wire.ModActionRow{row}, l[p]...)
}

func (l ModLog) clone() ModLog {
	out := make(ModLog, len(l))
	for p, rows := range l {
		out[p] = append([]wire.ModActionRow(nil), rows...)
	}
	return out
}

// Context is the single mutable root of session state, exclusively owned
// by the machine's event loop. External readers get Snapshot copies.
type Context struct {
	Login credstore.Credentials
	User  string
	Users []string

	Schema     configtree.Schema
	ConfigDump wire.ConfigDump
	Config     configtree.Tree

	PrevConfig configtree.Tree
	PrevCursor configtree.Cursor
	Cursor     configtree.Cursor

	ConfigChanged bool
	ConfigValid   bool

	AddCategory configtree.Category
	AddChoices  []string

	Log        ChatLog
	ModActions ModLog
}

func newContext() Context {
	return Context{
		Config:     configtree.NewTree(),
		PrevConfig: configtree.NewTree(),
		Cursor:     configtree.NoSelection,
		PrevCursor: configtree.NoSelection,
		Log:        make(ChatLog),
		ModActions: make(ModLog),
	}
}

// Snapshot is an immutable copy of session state handed to external
// readers. Nothing in it aliases machine-owned memory.
type Snapshot struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`

	User  string   `json:"user,omitempty"`
	Users []string `json:"users,omitempty"`

	Config        configtree.Tree   `json:"config"`
	Cursor        configtree.Cursor `json:"cursor"`
	ConfigChanged bool              `json:"configChanged"`
	ConfigValid   bool              `json:"configValid"`

	AddChoices []string `json:"addChoices,omitempty"`

	Log        ChatLog `json:"log"`
	ModActions ModLog  `json:"modActions"`
}

func (c *Context) snapshot(state State, connected bool) Snapshot {
	return Snapshot{
		State:         state.Path(),
		Connected:     connected,
		User:          c.User,
		Users:         append([]string(nil), c.Users...),
		Config:        c.Config.Clone(),
		Cursor:        c.Cursor,
		ConfigChanged: c.ConfigChanged,
		ConfigValid:   c.ConfigValid,
		AddChoices:    append([]string(nil), c.AddChoices...),
		Log:           c.Log.clone(),
		ModActions:    c.ModActions.clone(),
	}
}
