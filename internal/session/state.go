package session

// TopState is the top level of the hierarchical session state.
type TopState int

const (
	StatePreInit TopState = iota
	StateInit
	StateAuth
	StateReqSettings
	StateReqConfig
	StateSocketClosed
	StateReady
	StateAddCommand
	StateSaveConfig
	StateConfigInvalid
	StateConfigSaveFailed
	StateConfigChangedExternally
)

var topStateNames = map[TopState]string{
	StatePreInit:                 "preinit",
	StateInit:                    "init",
	StateAuth:                    "auth",
	StateReqSettings:             "reqSettings",
	StateReqConfig:               "reqConfig",
	StateSocketClosed:            "socketClosed",
	StateReady:                   "ready",
	StateAddCommand:              "addCommand",
	StateSaveConfig:              "saveConfig",
	StateConfigInvalid:           "configInvalid",
	StateConfigSaveFailed:        "configSaveFailed",
	StateConfigChangedExternally: "configChangedExternally",
}

func (s TopState) String() string {
	if name, ok := topStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// AuthSub is the substate of the auth composite.
type AuthSub int

const (
	AuthNone AuthSub = iota
	AuthTryAuth
	AuthGetListUsers
	AuthSelectUser
	AuthInputCode
	AuthRatelimited
)

var authSubNames = map[AuthSub]string{
	AuthTryAuth:      "tryAuth",
	AuthGetListUsers: "getListUsers",
	AuthSelectUser:   "selectUser",
	AuthInputCode:    "inputCode",
	AuthRatelimited:  "ratelimited",
}

func (s AuthSub) String() string {
	if name, ok := authSubNames[s]; ok {
		return name
	}
	return ""
}

// CodePhase is the code-request region of the inputCode parallel state.
type CodePhase int

const (
	CodeIdle CodePhase = iota
	CodePending
	CodeReady
)

func (p CodePhase) String() string {
	switch p {
	case CodePending:
		return "pending"
	case CodeReady:
		return "ready"
	}
	return "idle"
}

// LoginPhase is the login region of the inputCode parallel state.
type LoginPhase int

const (
	LoginIdle LoginPhase = iota
	LoginPending
	LoginFailed
)

func (p LoginPhase) String() string {
	switch p {
	case LoginPending:
		return "pending"
	case LoginFailed:
		return "failed"
	}
	return "idle"
}

// State is the full hierarchical state value. The sub fields are only
// meaningful for the top states that own them.
type State struct {
	Top  TopState
	Auth AuthSub

	// inputCode parallel regions.
	Code  CodePhase
	Login LoginPhase

	// reqSettings parallel regions.
	SchemaReady bool
	ConfigReady bool
}

// Path renders the active state as a dotted path, e.g. "auth.inputCode".
func (s State) Path() string {
	if s.Top == StateAuth && s.Auth != AuthNone {
		return s.Top.String() + "." + s.Auth.String()
	}
	return s.Top.String()
}
