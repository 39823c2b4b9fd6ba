// Package auth performs the three-step handshake that turns an email and
// password into a long-lived bearer credential for one hub.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rshallam/drift-beacon/internal/hub"
)

const (
	// SecureAttemptTimeout bounds the https-first attempt of an unhinted
	// authentication. Deliberately shorter than the per-request timeout:
	// exceeding it only triggers the http fallback, it does not fail the
	// whole authentication.
	SecureAttemptTimeout = 1500 * time.Millisecond

	// ServerSessionDays is the lifetime requested for the issued token.
	ServerSessionDays = 365

	// serverName identifies this integration in the hub's session registry.
	serverName = "Drift Beacon Sync"
)

// Credential is the durable output of a successful handshake. It is only
// ever replaced wholesale by another successful (re)authentication.
type Credential struct {
	BearerToken string
	ExpiresAt   string
	HubID       string
	HubName     string
	UserID      string
	UserEmail   string
	Scheme      string
}

// Params carries the inputs of an authentication attempt. An empty Scheme
// means unhinted: try https first under SecureAttemptTimeout, then fall
// back to http.
type Params struct {
	Host     string
	Port     int
	Email    string
	Password string
	Scheme   string
}

// Option tunes the handshake.
type Option func(*settings)

type settings struct {
	logger         *log.Logger
	requestTimeout time.Duration
	secureTimeout  time.Duration
}

// WithLogger overrides the logger used for handshake progress.
func WithLogger(logger *log.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithTimeouts overrides the per-request and secure-attempt timeouts.
func WithTimeouts(request, secureAttempt time.Duration) Option {
	return func(s *settings) {
		s.requestTimeout = request
		s.secureTimeout = secureAttempt
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		logger:         log.New(io.Discard, "", 0),
		requestTimeout: hub.DefaultRequestTimeout,
		secureTimeout:  SecureAttemptTimeout,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Authenticate runs the handshake against the hub at p.Host:p.Port.
//
// Hinted mode (p.Scheme set) talks directly to that scheme. Unhinted mode
// tries the full handshake over https bounded by the secure-attempt
// timeout, then falls back to http on timeout or connection failure. The
// ordered try-secure-then-fallback policy is intentional: transport choice
// during authentication must prefer encryption, unlike the credential-free
// discovery race which only optimizes latency. Typed handshake errors and
// HTTP-level rejections never trigger the fallback; by then the transport
// has already proven itself.
func Authenticate(ctx context.Context, p Params, opts ...Option) (*Credential, error) {
	s := newSettings(opts)

	if p.Scheme != "" {
		return handshake(ctx, p.Scheme, p, s)
	}

	secureCtx, cancel := context.WithTimeout(ctx, s.secureTimeout)
	cred, err := handshake(secureCtx, hub.SchemeHTTPS, p, s)
	cancel()
	if err == nil {
		return cred, nil
	}
	if !fallbackEligible(err) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// NOTE: a plain https timeout also lands here, so a misconfigured hub
	// can silently degrade to http. Hubs that are slow to finish their
	// first TLS handshake depend on this.
	s.logger.Printf("auth: secure handshake failed (%v), falling back to http", err)
	return handshake(ctx, hub.SchemeHTTP, p, s)
}

// Reauthenticate refreshes the bearer token for an existing connection. It
// pins the scheme and email recorded at setup and rejects the result with
// ErrAccountMismatch when the hub signs in a different user; the stored
// credential stays untouched in that case.
func Reauthenticate(ctx context.Context, stored *Credential, host string, port int, password string, opts ...Option) (*Credential, error) {
	cred, err := Authenticate(ctx, Params{
		Host:     host,
		Port:     port,
		Email:    stored.UserEmail,
		Password: password,
		Scheme:   stored.Scheme,
	}, opts...)
	if err != nil {
		return nil, err
	}
	if cred.UserID != stored.UserID {
		return nil, ErrAccountMismatch
	}
	return cred, nil
}

// fallbackEligible reports whether an https failure should fall through to
// http. Only transport-level failures qualify; once the hub produced an
// HTTP response, the scheme was right and the error is final.
func fallbackEligible(err error) bool {
	if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrSessionCreationFailed) {
		return false
	}
	var apiErr *hub.APIError
	return !errors.As(err, &apiErr)
}

func handshake(ctx context.Context, scheme string, p Params, s settings) (*Credential, error) {
	base := fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)

	// One cookie jar scoped to this handshake only: the sign-in cookie must
	// reach the session-creation call, and nothing after it.
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := hub.NewHTTPClient(scheme, s.requestTimeout)
	client.Jar = jar

	s.logger.Printf("auth: fetching hub identity from %s", base)
	var status struct {
		Device hub.DeviceIdentity `json:"device"`
	}
	if err := call(ctx, client, http.MethodGet, base+hub.PathStatus, nil, &status, nil); err != nil {
		return nil, err
	}

	s.logger.Printf("auth: signing in as %s", p.Email)
	var signIn struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	err = call(ctx, client, http.MethodPost, base+hub.PathSignIn, map[string]string{
		"email":    p.Email,
		"password": p.Password,
	}, &signIn, ErrInvalidCredentials)
	if err != nil {
		return nil, err
	}

	// Deterministic composite id keyed by hub and user, so repeated setups
	// are idempotent on the hub side.
	serverID := fmt.Sprintf("drift_beacon_%s_%s", status.Device.ID, signIn.User.ID)
	s.logger.Printf("auth: creating server session %s", serverID)
	var session struct {
		Token     string `json:"serverSessionToken"`
		ExpiresAt string `json:"expiresAt"`
	}
	err = call(ctx, client, http.MethodPost, base+hub.PathCreateServerSession, map[string]any{
		"serverId":      serverID,
		"serverName":    serverName,
		"expiresInDays": ServerSessionDays,
	}, &session, ErrSessionCreationFailed)
	if err != nil {
		return nil, err
	}

	return &Credential{
		BearerToken: session.Token,
		ExpiresAt:   session.ExpiresAt,
		HubID:       status.Device.ID,
		HubName:     status.Device.Name,
		UserID:      signIn.User.ID,
		UserEmail:   signIn.User.Email,
		Scheme:      scheme,
	}, nil
}

// call performs one handshake request. A 401 maps to unauthorizedErr when
// provided; any other non-2xx becomes a *hub.APIError.
func call(ctx context.Context, client *http.Client, method, url string, body, out any, unauthorizedErr error) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && unauthorizedErr != nil {
		return unauthorizedErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &hub.APIError{Method: method, Path: req.URL.Path, Status: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
