// Package session implements the console's hierarchical session state
// machine: the authentication flow, the settings bootstrap, config editing
// with validation and revert, and the save/reconcile cycle. The machine
// owns the session context exclusively and processes one event to
// completion before admitting the next; the transport runs as a separate
// actor and communicates only through its event channel.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebot/console/internal/configtree"
	"github.com/aussiebot/console/internal/credstore"
	"github.com/aussiebot/console/internal/transport"
	"github.com/aussiebot/console/internal/value"
	"github.com/aussiebot/console/internal/wire"
	"github.com/aussiebot/console/pkg/logger"
	"github.com/aussiebot/console/pkg/metrics"
	"github.com/aussiebot/console/pkg/utils"
)

// Transport is the connection actor the machine drives. Send drops
// silently while the connection is closed; the machine re-issues its
// requests on reconnect through the auth and settings re-entry paths.
type Transport interface {
	Run(ctx context.Context)
	Send(v any)
	Events() <-chan transport.Event
}

// Config carries the machine's session parameters.
type Config struct {
	// Channel scopes session frames to one bot instance.
	Channel string
	// Platform tags outbound envelopes.
	Platform value.Platform
	// SaveAckTimeout bounds the wait for a save acknowledgment.
	SaveAckTimeout time.Duration
	// Headless skips machine startup entirely when no interactive host
	// exists to drive it.
	Headless bool
}

func (c Config) withDefaults() Config {
	if c.Platform == 0 {
		c.Platform = value.PlatformWeb
	}
	if c.SaveAckTimeout <= 0 {
		c.SaveAckTimeout = 10 * time.Second
	}
	return c
}

// Machine is the session state machine. All mutation happens on the Run
// goroutine; external callers interact through Dispatch and Snapshot.
type Machine struct {
	cfg       Config
	log       logger.Logger
	metrics   *metrics.Metrics
	transport Transport
	creds     *credstore.Store

	ctx       Context
	state     State
	connected bool

	events chan Event
	// timerEvents carries save-ack timeouts on their own channel so a
	// full user-event queue can never drop one
	timerEvents chan Event
	now         func() time.Time

	saveTimer   *time.Timer
	saveGen     uint64
	saveStarted time.Time

	mu   sync.RWMutex
	snap Snapshot
}

// New builds a machine in its preinit state. Run starts it.
func New(cfg Config, t Transport, creds *credstore.Store, log logger.Logger, m *metrics.Metrics) *Machine {
	mach := &Machine{
		cfg:         cfg.withDefaults(),
		log:         log,
		metrics:     m,
		transport:   t,
		creds:       creds,
		ctx:         newContext(),
		state:       State{Top: StatePreInit},
		events:      make(chan Event, 64),
		timerEvents: make(chan Event, 1),
		now:         time.Now,
	}
	mach.publish()
	return mach
}

// Dispatch enqueues a user-driven event. It never blocks; if the machine
// is so far behind that the queue is full, the event is dropped.
func (m *Machine) Dispatch(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.log.Warn("session event queue full, dropping event")
	}
}

// Snapshot returns the most recent immutable copy of session state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Run starts the transport and processes events until ctx is cancelled.
func (m *Machine) Run(ctx context.Context) {
	if m.cfg.Headless {
		m.log.Info("headless execution context, session machine not started")
		return
	}

	m.state = State{Top: StateInit}
	go m.transport.Run(ctx)
	m.publish()

	for {
		select {
		case <-ctx.Done():
			return
		case tev := <-m.transport.Events():
			m.handleTransport(ctx, tev)
		case ev := <-m.timerEvents:
			m.handleEvent(ev)
		case ev := <-m.events:
			m.handleEvent(ev)
		}
		m.publish()
	}
}

func (m *Machine) publish() {
	snap := m.ctx.snapshot(m.state, m.connected)
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
}

// send wraps a payload in the session envelope and transmits it.
func (m *Machine) send(p wire.Payload) {
	m.transport.Send(wire.Message{Platform: m.cfg.Platform, Channel: m.cfg.Channel, Payload: p})
}

func (m *Machine) handleTransport(ctx context.Context, ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnected:
		m.connected = true
		// a reconnect means the server has forgotten us; authenticate
		// from scratch
		m.enterAuth(ctx)
	case transport.EventDisconnected:
		m.connected = false
		m.cancelSaveTimer()
		if m.state.Top == StateAuth {
			m.persistLogin(ctx)
		}
		m.state = State{Top: StateSocketClosed}
	case transport.EventFrame:
		switch {
		case ev.Inbound.Auth != nil:
			m.handleAuthResponse(ctx, *ev.Inbound.Auth)
		case ev.Inbound.Msg != nil:
			m.handlePayload(*ev.Inbound.Msg)
		}
	}
}

// --- auth composite ---

func (m *Machine) enterAuth(ctx context.Context) {
	m.cancelSaveTimer()
	m.state = State{Top: StateAuth}
	if creds, ok := m.creds.Load(ctx); ok {
		m.ctx.Login = creds
		m.ctx.User = creds.User
		m.state.Auth = AuthTryAuth
		m.log.Info("trying stored credentials", logger.StringField("user", creds.User))
		m.metrics.IncrementTransportCounter(metrics.TransportAuthAttempts)
		m.transport.Send(wire.LoginRequest(creds.User, creds.Code))
		return
	}
	m.restartRoster()
}

// restartRoster drops back to user selection and asks for the roster
// again. Used at auth entry, after stored-credential failure, and as the
// generic recovery from a server-side auth error.
func (m *Machine) restartRoster() {
	m.state.Auth = AuthGetListUsers
	m.state.Code = CodeIdle
	m.state.Login = LoginIdle
	m.transport.Send(wire.ListUsersRequest())
}

func (m *Machine) persistLogin(ctx context.Context) {
	if m.ctx.Login.User != "" {
		m.creds.Save(ctx, m.ctx.Login)
	}
}

func (m *Machine) completeAuth(ctx context.Context) {
	m.persistLogin(ctx)
	m.log.Info("authenticated", logger.StringField("user", m.ctx.User))
	m.enterReqSettings()
}

func (m *Machine) handleAuthResponse(ctx context.Context, r wire.AuthResponse) {
	if m.state.Top != StateAuth {
		m.log.Debug("auth response outside auth, ignored")
		return
	}
	if m.state.Auth == AuthRatelimited {
		return
	}

	switch r.Kind {
	case wire.AuthUsers:
		m.ctx.Users = r.Users
		if m.state.Auth == AuthGetListUsers {
			m.state.Auth = AuthSelectUser
		}
	case wire.AuthInvalidUser:
		m.log.Warn("user rejected by backend", logger.StringField("user", m.ctx.User))
		m.restartRoster()
	case wire.AuthCodeReady:
		if m.state.Auth == AuthInputCode {
			m.state.Code = CodeReady
		}
	case wire.AuthCodeExpired:
		if m.state.Auth == AuthInputCode {
			// a pending login attempt is void now; request a fresh code
			m.state.Login = LoginIdle
			m.state.Code = CodePending
			m.transport.Send(wire.CodeRequest(m.ctx.User))
		}
	case wire.AuthSuccess:
		if r.User != m.ctx.User {
			m.log.Debug("auth success for a different user, ignored",
				logger.StringField("user", r.User))
			return
		}
		m.completeAuth(ctx)
	case wire.AuthFail:
		switch m.state.Auth {
		case AuthTryAuth:
			m.restartRoster()
		case AuthInputCode:
			m.state.Login = LoginFailed
		}
	case wire.AuthError:
		if r.Err == wire.AuthErrRatelimited {
			m.log.Warn("temporarily blocked by backend rate limit")
			m.state.Auth = AuthRatelimited
			return
		}
		m.log.Warn("backend auth error, restarting user selection")
		m.restartRoster()
	}
}

// --- settings bootstrap ---

func (m *Machine) enterReqSettings() {
	m.state = State{Top: StateReqSettings}
	m.send(wire.Payload{Kind: wire.PayloadDumpSchema})
	m.send(wire.Payload{Kind: wire.PayloadDumpConfig})
	m.send(wire.Payload{Kind: wire.PayloadDumpModActions})
	m.send(wire.Payload{Kind: wire.PayloadDumpLog, LogPlatform: value.PlatformChat})
}

func (m *Machine) maybeFinishSettings() {
	if !m.state.SchemaReady || !m.state.ConfigReady {
		return
	}
	m.adoptConfig()
	m.state = State{Top: StateReady}
}

// adoptConfig parses the stored wire dump against the schema, recomputes
// validity, and snapshots the result as the last acknowledged state.
func (m *Machine) adoptConfig() {
	tree, err := configtree.Decode(m.ctx.ConfigDump, m.ctx.Schema)
	if err != nil {
		m.log.Error("config dump rejected", logger.ErrorField(err))
	}
	m.ctx.Config = tree
	m.ctx.ConfigValid = tree.Valid()
	m.ctx.ConfigChanged = false
	m.ctx.Cursor = m.ctx.Cursor.Clamp(&m.ctx.Config)
	m.ctx.PrevConfig = tree.Clone()
	m.ctx.PrevCursor = m.ctx.Cursor
}

func (m *Machine) enterReqConfig() {
	m.state = State{Top: StateReqConfig}
	m.send(wire.Payload{Kind: wire.PayloadDumpConfig})
}

// --- inbound session payloads ---

func (m *Machine) handlePayload(msg wire.Message) {
	// cross-cutting handlers, active in every state
	switch msg.Payload.Kind {
	case wire.PayloadLogDump:
		m.replaceLog(msg.Payload.Log)
		return
	case wire.PayloadModActionsDump:
		m.replaceModActions(msg.Payload.ModActions)
		return
	case wire.PayloadChat:
		m.ctx.Log.Append(msg.Platform, m.now(), *msg.Payload.Chat)
		return
	case wire.PayloadModAction:
		m.recordModAction(msg.Platform, *msg.Payload.ModAction)
		return
	case wire.PayloadMessage, wire.PayloadStreamSignal, wire.PayloadStreamEvent:
		m.log.Debug("notification payload ignored",
			logger.IntField("kind", int(msg.Payload.Kind)))
		return
	}

	switch msg.Payload.Kind {
	case wire.PayloadSchemaDump:
		if m.state.Top != StateReqSettings || m.state.SchemaReady {
			m.log.Debug("unexpected schema dump, ignored")
			return
		}
		schema, err := configtree.BuildSchema(msg.Payload.Schema)
		if err != nil {
			m.log.Error("schema dump rejected", logger.ErrorField(err))
		} else {
			m.ctx.Schema = schema
		}
		m.state.SchemaReady = true
		m.maybeFinishSettings()

	case wire.PayloadConfigDump:
		switch m.state.Top {
		case StateReqSettings:
			m.ctx.ConfigDump = *msg.Payload.Config
			m.state.ConfigReady = true
			m.maybeFinishSettings()
		case StateReqConfig:
			m.ctx.ConfigDump = *msg.Payload.Config
			m.adoptConfig()
			m.state = State{Top: StateReady}
		default:
			m.log.Debug("unexpected config dump, ignored")
		}

	case wire.PayloadConfigSaved:
		if m.state.Top != StateSaveConfig {
			m.log.Debug("unexpected save acknowledgment, ignored")
			return
		}
		m.cancelSaveTimer()
		m.metrics.ObserveSaveDuration(m.now().Sub(m.saveStarted))
		m.ctx.PrevConfig = m.ctx.Config.Clone()
		m.ctx.PrevCursor = m.ctx.Cursor
		m.ctx.ConfigChanged = false
		m.state = State{Top: StateReady}

	case wire.PayloadConfigChanged:
		m.handleExternalChange()
	}
}

func (m *Machine) handleExternalChange() {
	switch m.state.Top {
	case StateReady:
		if m.ctx.ConfigChanged {
			m.state = State{Top: StateConfigChangedExternally}
			return
		}
		m.enterReqConfig()
	case StateSaveConfig:
		// known gap: another client's save racing ours is not surfaced
		m.log.Debug("external config change during save, ignored")
	default:
		m.log.Debug("external config change notice ignored",
			logger.StringField("state", m.state.Path()))
	}
}

func (m *Machine) replaceLog(dump wire.LogDump) {
	fresh := make(ChatLog)
	for _, entry := range dump {
		for _, line := range entry.Lines {
			rec, err := wire.ParseLogRecord(line)
			if err != nil {
				m.log.Debug("dropping unparseable log line", logger.ErrorField(err))
				continue
			}
			fresh.Append(entry.Platform, rec.At, rec.Chat)
		}
	}
	m.ctx.Log = fresh
}

func (m *Machine) replaceModActions(dump wire.ModActionsDump) {
	fresh := make(ModLog)
	for _, entry := range dump {
		fresh[entry.Platform] = append([]wire.ModActionRow(nil), entry.Rows...)
	}
	m.ctx.ModActions = fresh
}

func (m *Machine) recordModAction(p value.Platform, ev wire.ModActionEvent) {
	m.ctx.ModActions.Prepend(p, wire.ModActionRow{
		DisplayName: utils.ToPtr(ev.User.Name),
		PlatformID:  ev.User.ID,
		Action:      ev.Action.String(),
		Reason:      ev.Reason,
		At:          m.now().Unix(),
	})
}

// --- user-driven events ---

func (m *Machine) handleEvent(ev Event) {
	switch e := ev.(type) {
	case SelectUser:
		if m.state.Top == StateAuth && m.state.Auth == AuthSelectUser {
			m.ctx.User = e.Name
			m.state.Auth = AuthInputCode
			m.state.Code = CodeIdle
			m.state.Login = LoginIdle
		}

	case RequestCode:
		if m.inInputCode() && m.state.Code == CodeIdle {
			m.state.Code = CodePending
			m.transport.Send(wire.CodeRequest(m.ctx.User))
		}

	case SubmitCode:
		if m.inInputCode() && m.state.Login != LoginPending {
			m.ctx.Login = credstore.Credentials{User: m.ctx.User, Code: e.Code}
			m.state.Login = LoginPending
			m.metrics.IncrementTransportCounter(metrics.TransportAuthAttempts)
			m.transport.Send(wire.LoginRequest(m.ctx.User, e.Code))
		}

	case SetField:
		if m.state.Top != StateReady {
			return
		}
		entry := m.ctx.Config.At(m.ctx.Cursor)
		if entry == nil {
			return
		}
		for i := range entry.Fields {
			if entry.Fields[i].Name == e.Field {
				entry.Fields[i].Set(e.Value)
				m.recomputeFlags()
				return
			}
		}
		m.log.Debug("edit for unknown field ignored", logger.StringField("field", e.Field))

	case SetName:
		if m.state.Top != StateReady {
			return
		}
		if entry := m.ctx.Config.At(m.ctx.Cursor); entry != nil {
			entry.Name = e.Name
			m.recomputeFlags()
		}

	case Select:
		if m.state.Top != StateReady {
			return
		}
		next := e.Cursor.Clamp(&m.ctx.Config)
		// cursor history freezes while an unsaved change is pending, so
		// discarding the change can return to the original entry
		if !m.ctx.ConfigChanged {
			m.ctx.PrevCursor = m.ctx.Cursor
		}
		m.ctx.Cursor = next

	case Delete:
		if m.state.Top != StateReady {
			return
		}
		if !m.ctx.Config.Remove(e.Cursor) {
			return
		}
		m.ctx.Cursor = m.ctx.Cursor.RepairAfterDelete(e.Cursor).Clamp(&m.ctx.Config)
		m.recomputeFlags()

	case Revert:
		if m.state.Top != StateReady {
			return
		}
		m.ctx.Config = m.ctx.PrevConfig.Clone()
		m.ctx.Cursor = m.ctx.PrevCursor
		m.ctx.ConfigChanged = false
		m.ctx.ConfigValid = m.ctx.Config.Valid()

	case AddRequest:
		if m.state.Top != StateReady {
			return
		}
		choices := m.ctx.Schema.TypesFor(e.Category)
		if len(choices) == 0 {
			return
		}
		m.ctx.AddCategory = e.Category
		m.ctx.AddChoices = choices
		m.state = State{Top: StateAddCommand}

	case AddChoose:
		if m.state.Top != StateAddCommand {
			return
		}
		m.finishAdd(e.Type)

	case AddCancel:
		if m.state.Top == StateAddCommand {
			m.clearAdd()
			m.state = State{Top: StateReady}
		}

	case Save:
		if m.state.Top != StateReady {
			return
		}
		if !m.ctx.ConfigValid {
			m.state = State{Top: StateConfigInvalid}
			return
		}
		m.enterSaveConfig()

	case Dismiss:
		switch m.state.Top {
		case StateConfigInvalid, StateConfigSaveFailed, StateConfigChangedExternally:
			m.state = State{Top: StateReady}
		}

	case DiscardAndReload:
		if m.state.Top == StateConfigChangedExternally {
			m.enterReqConfig()
		}

	case saveTimeout:
		if m.state.Top == StateSaveConfig && e.gen == m.saveGen {
			m.saveTimer = nil
			m.log.Error("config save not acknowledged",
				logger.DurationField("timeout", m.cfg.SaveAckTimeout))
			m.state = State{Top: StateConfigSaveFailed}
		}
	}
}

func (m *Machine) inInputCode() bool {
	return m.state.Top == StateAuth && m.state.Auth == AuthInputCode
}

func (m *Machine) recomputeFlags() {
	m.ctx.ConfigValid = m.ctx.Config.Valid()
	m.ctx.ConfigChanged = !m.ctx.Config.Equal(m.ctx.PrevConfig)
}

func (m *Machine) finishAdd(typ string) {
	defer func() {
		m.clearAdd()
		m.state = State{Top: StateReady}
	}()

	spec, ok := m.ctx.Schema.Lookup(typ)
	if !ok || spec.Category != m.ctx.AddCategory {
		m.log.Warn("add-command choice not offered", logger.StringField("type", typ))
		return
	}
	entry, ok := configtree.NewEntry(m.ctx.Schema, typ)
	if !ok {
		return
	}
	if !m.ctx.ConfigChanged {
		m.ctx.PrevCursor = m.ctx.Cursor
	}
	m.ctx.Cursor = m.ctx.Config.Append(m.ctx.AddCategory, entry)
	m.recomputeFlags()
}

func (m *Machine) clearAdd() {
	m.ctx.AddChoices = nil
	m.ctx.AddCategory = configtree.CategoryCommands
}

// --- save cycle ---

func (m *Machine) enterSaveConfig() {
	m.state = State{Top: StateSaveConfig}
	dump := configtree.Encode(m.ctx.Config)
	m.ctx.ConfigDump = dump
	m.send(wire.Payload{Kind: wire.PayloadConfigDump, Config: &dump})

	m.saveGen++
	gen := m.saveGen
	m.saveStarted = m.now()
	m.saveTimer = time.AfterFunc(m.cfg.SaveAckTimeout, func() {
		// only one timer is ever live, so this cannot block Run; a
		// stale fire left queued is discarded by the gen check
		m.timerEvents <- saveTimeout{gen: gen}
	})
}

// cancelSaveTimer stops a pending save-acknowledgment timer and
// invalidates any fire already in flight.
func (m *Machine) cancelSaveTimer() {
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.saveGen++
}
