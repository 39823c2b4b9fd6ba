package auth

import "errors"

var (
	// ErrInvalidCredentials means the hub rejected the email/password pair.
	// User-correctable; the handshake never proceeds to session creation.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrSessionCreationFailed means the credentials were accepted but the
	// hub refused to issue a server session token. Distinct from
	// ErrInvalidCredentials so callers can report it accurately.
	ErrSessionCreationFailed = errors.New("auth: server session creation refused")

	// ErrAccountMismatch means a reauthentication signed in as a different
	// user than the one the connection was created for. The attempt is
	// rejected rather than silently adopting the new identity.
	ErrAccountMismatch = errors.New("auth: reauthentication resolved to a different account")
)
