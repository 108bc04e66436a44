package domain

type SessionState int

const (
	SessionUnknown SessionState = iota
	SessionUnauthenticated
	SessionAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionUnauthenticated:
		return "unauthenticated"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the derived view of the auth stream. User is nil unless Authenticated.
type Session struct {
	State SessionState
	User  *User
}
