package discover

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rshallam/drift-beacon/internal/hub"
)

const statusBody = `{"device":{"id":"hub-1","name":"Office Hub"}}`

func statusHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, hub.PathStatus, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(statusBody))
	})
}

func hostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u := rawURL
	for _, prefix := range []string{"https://", "http://"} {
		if len(u) > len(prefix) && u[:len(prefix)] == prefix {
			u = u[len(prefix):]
		}
	}
	host, portStr, err := net.SplitHostPort(u)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestRaceFindsPlainHTTPHub(t *testing.T) {
	server := httptest.NewServer(statusHandler(t))
	defer server.Close()
	host, port := hostPort(t, server.URL)

	result, err := Race(context.Background(), host, port, hub.PathStatus, DefaultCandidates, DetectionTimeout)
	require.NoError(t, err)
	require.Equal(t, hub.SchemeHTTP, result.Scheme)
	require.JSONEq(t, statusBody, string(result.Body))
}

func TestRaceFindsSelfSignedHTTPSHub(t *testing.T) {
	// httptest's TLS server uses a self-signed certificate, exactly the
	// situation the prober must tolerate.
	server := httptest.NewTLSServer(statusHandler(t))
	defer server.Close()
	host, port := hostPort(t, server.URL)

	result, err := Race(context.Background(), host, port, hub.PathStatus, DefaultCandidates, DetectionTimeout)
	require.NoError(t, err)
	require.Equal(t, hub.SchemeHTTPS, result.Scheme)
	require.JSONEq(t, statusBody, string(result.Body))
}

func TestRaceCandidateOrderDoesNotMatter(t *testing.T) {
	server := httptest.NewServer(statusHandler(t))
	defer server.Close()
	host, port := hostPort(t, server.URL)

	reversed := []string{hub.SchemeHTTP, hub.SchemeHTTPS}
	result, err := Race(context.Background(), host, port, hub.PathStatus, reversed, DetectionTimeout)
	require.NoError(t, err)
	require.Equal(t, hub.SchemeHTTP, result.Scheme)
}

func TestRaceLatencyBoundedByWinner(t *testing.T) {
	server := httptest.NewServer(statusHandler(t))
	defer server.Close()
	host, port := hostPort(t, server.URL)

	probeTimeout := 3 * time.Second
	start := time.Now()
	_, err := Race(context.Background(), host, port, hub.PathStatus, DefaultCandidates, probeTimeout)
	require.NoError(t, err)

	// The losing https probe has a 3s budget; the race must not wait it out.
	require.Less(t, time.Since(start), probeTimeout/2)
}

func TestRaceAllCandidatesFail(t *testing.T) {
	// Grab a port with no listener behind it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	_, err = Race(context.Background(), "127.0.0.1", port, hub.PathStatus, DefaultCandidates, 500*time.Millisecond)
	require.ErrorIs(t, err, ErrNoneAvailable)
}

func TestRaceNoCandidates(t *testing.T) {
	_, err := Race(context.Background(), "127.0.0.1", 9000, hub.PathStatus, nil, time.Second)
	require.ErrorIs(t, err, ErrNoneAvailable)
}

func TestProbeRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()
	host, port := hostPort(t, server.URL)

	_, err := Probe(context.Background(), hub.SchemeHTTP, host, port, hub.PathStatus, time.Second)
	require.Error(t, err)
}

func TestDetectHubWalksCandidates(t *testing.T) {
	server := httptest.NewServer(statusHandler(t))
	defer server.Close()
	host, port := hostPort(t, server.URL)

	deadPort := port + 1 // likely unused; a failure there just exercises the skip path
	candidates := []Endpoint{
		{Host: "127.0.0.1", Port: deadPort},
		{Host: host, Port: port},
	}

	location, ok := DetectHub(context.Background(), candidates, nil)
	require.True(t, ok)
	require.Equal(t, hub.SchemeHTTP, location.Scheme)
	require.Equal(t, host, location.Host)
	require.Equal(t, port, location.Port)
	require.Equal(t, "hub-1", location.Identity.ID)
	require.Equal(t, "Office Hub", location.Identity.Name)
}

func TestDetectHubNothingFound(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	_, ok := DetectHub(context.Background(), []Endpoint{{Host: "127.0.0.1", Port: port}}, nil)
	require.False(t, ok)
}
