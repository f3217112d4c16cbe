package wire

import (
	"encoding/json"
	"fmt"
)

// AuthRequestKind discriminates outbound authentication messages.
type AuthRequestKind int

const (
	AuthListUsers AuthRequestKind = iota
	AuthRequestCode
	AuthLogin
)

// AuthRequest is an outbound authentication message. Wire forms:
// "ListUsers", {"RequestCode": user}, {"Login": [user, code]}.
type AuthRequest struct {
	Kind AuthRequestKind
	User string
	Code string
}

// ListUsersRequest asks for the roster of known admin users.
func ListUsersRequest() AuthRequest { return AuthRequest{Kind: AuthListUsers} }

// CodeRequest asks the backend to generate and deliver a login code.
func CodeRequest(user string) AuthRequest {
	return AuthRequest{Kind: AuthRequestCode, User: user}
}

// LoginRequest submits a (user, code) pair for authentication.
func LoginRequest(user, code string) AuthRequest {
	return AuthRequest{Kind: AuthLogin, User: user, Code: code}
}

func (r AuthRequest) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case AuthListUsers:
		return json.Marshal("ListUsers")
	case AuthRequestCode:
		return json.Marshal(map[string]string{"RequestCode": r.User})
	case AuthLogin:
		return json.Marshal(map[string][2]string{"Login": {r.User, r.Code}})
	}
	return nil, fmt.Errorf("unknown auth request kind %d", int(r.Kind))
}

func (r *AuthRequest) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != "ListUsers" {
			return fmt.Errorf("unknown auth request %q", tag)
		}
		*r = AuthRequest{Kind: AuthListUsers}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid auth request: %w", err)
	}
	if raw, ok := obj["RequestCode"]; ok {
		*r = AuthRequest{Kind: AuthRequestCode}
		return json.Unmarshal(raw, &r.User)
	}
	if raw, ok := obj["Login"]; ok {
		var pair [2]string
		if err := json.Unmarshal(raw, &pair); err != nil {
			return err
		}
		*r = AuthRequest{Kind: AuthLogin, User: pair[0], Code: pair[1]}
		return nil
	}
	return fmt.Errorf("unknown auth request %s", string(data))
}

// AuthErrorKind discriminates server-reported authentication errors.
type AuthErrorKind int

const (
	AuthErrRatelimited AuthErrorKind = iota
	AuthErrServer
)

// AuthResponseKind discriminates inbound authentication responses.
type AuthResponseKind int

const (
	AuthUsers AuthResponseKind = iota
	AuthInvalidUser
	AuthCodeReady
	AuthCodeExpired
	AuthSuccess
	AuthFail
	AuthError
)

// AuthResponse is an inbound authentication response.
type AuthResponse struct {
	Kind  AuthResponseKind
	Users []string      // AuthUsers
	User  string        // AuthSuccess
	Err   AuthErrorKind // AuthError
}

var bareAuthResponses = map[string]AuthResponseKind{
	"InvalidUser": AuthInvalidUser,
	"CodeReady":   AuthCodeReady,
	"CodeExpired": AuthCodeExpired,
	"AuthFail":    AuthFail,
}

func (r AuthResponse) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case AuthUsers:
		return json.Marshal(map[string][]string{"Users": r.Users})
	case AuthSuccess:
		return json.Marshal(map[string]string{"AuthSuccess": r.User})
	case AuthError:
		name := "ServerError"
		if r.Err == AuthErrRatelimited {
			name = "Ratelimited"
		}
		return json.Marshal(map[string]string{"AuthError": name})
	}
	for name, kind := range bareAuthResponses {
		if kind == r.Kind {
			return json.Marshal(name)
		}
	}
	return nil, fmt.Errorf("unknown auth response kind %d", int(r.Kind))
}

func (r *AuthResponse) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		kind, ok := bareAuthResponses[tag]
		if !ok {
			return fmt.Errorf("unknown auth response %q", tag)
		}
		*r = AuthResponse{Kind: kind}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid auth response: %w", err)
	}
	if raw, ok := obj["Users"]; ok {
		*r = AuthResponse{Kind: AuthUsers}
		return json.Unmarshal(raw, &r.Users)
	}
	if raw, ok := obj["AuthSuccess"]; ok {
		*r = AuthResponse{Kind: AuthSuccess}
		return json.Unmarshal(raw, &r.User)
	}
	if raw, ok := obj["AuthError"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return err
		}
		switch name {
		case "Ratelimited":
			*r = AuthResponse{Kind: AuthError, Err: AuthErrRatelimited}
		case "ServerError":
			*r = AuthResponse{Kind: AuthError, Err: AuthErrServer}
		default:
			return fmt.Errorf("unknown auth error %q", name)
		}
		return nil
	}
	return fmt.Errorf("unknown auth response %s", string(data))
}
