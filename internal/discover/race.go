package discover

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/rshallam/drift-beacon/internal/hub"
)

// ErrNoneAvailable reports that every candidate scheme failed. Individual
// probe failures are expected during discovery and stay internal.
var ErrNoneAvailable = errors.New("discover: hub unreachable on all candidate schemes")

// DefaultCandidates lists the schemes a hub may answer on. Order carries no
// preference for racing; it only fixes goroutine launch order.
var DefaultCandidates = []string{hub.SchemeHTTPS, hub.SchemeHTTP}

// Result is the winning probe of a race.
type Result struct {
	Scheme string
	Body   json.RawMessage
}

// Race probes host:port/path on every candidate scheme concurrently and
// returns the first success. Losing probes are cancelled; cancellation is
// best-effort (in-flight I/O may still complete) but a discarded probe's
// result is never applied. If the first completion is a failure the race
// keeps waiting on the rest; only when every candidate has failed does it
// return ErrNoneAvailable.
//
// Racing instead of trying schemes serially removes the serialized-timeout
// penalty: the hub answers promptly on whichever scheme it actually serves.
func Race(ctx context.Context, host string, port int, path string, candidates []string, timeout time.Duration) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, ErrNoneAvailable
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		scheme string
		body   json.RawMessage
		err    error
	}

	outcomes := make(chan outcome, len(candidates))
	for _, scheme := range candidates {
		go func(scheme string) {
			body, err := Probe(ctx, scheme, host, port, path, timeout)
			outcomes <- outcome{scheme: scheme, body: body, err: err}
		}(scheme)
	}

	for range candidates {
		o := <-outcomes
		if o.err == nil {
			return Result{Scheme: o.scheme, Body: o.body}, nil
		}
	}
	return Result{}, ErrNoneAvailable
}

// Endpoint is one host:port pair to check during hub detection.
type Endpoint struct {
	Host string
	Port int
}

// DetectionCandidates are the well-known locations a local hub add-on
// announces itself on.
var DetectionCandidates = []Endpoint{
	{Host: "local-beacon-hub", Port: 9000},
	{Host: "homeassistant.local", Port: 9000},
	{Host: "localhost", Port: 9000},
}

// HubLocation describes a detected hub.
type HubLocation struct {
	Scheme   string
	Host     string
	Port     int
	Identity hub.DeviceIdentity
}

// DetectHub walks the candidate endpoints in order, racing schemes against
// the status endpoint at each, and returns the first hub that answers.
func DetectHub(ctx context.Context, candidates []Endpoint, logger *log.Logger) (HubLocation, bool) {
	for _, candidate := range candidates {
		result, err := Race(ctx, candidate.Host, candidate.Port, hub.PathStatus, DefaultCandidates, DetectionTimeout)
		if err != nil {
			continue
		}

		var payload struct {
			Device hub.DeviceIdentity `json:"device"`
		}
		if err := json.Unmarshal(result.Body, &payload); err != nil || payload.Device.ID == "" {
			if logger != nil {
				logger.Printf("discover: %s:%d answered without a device identity", candidate.Host, candidate.Port)
			}
			continue
		}

		if logger != nil {
			logger.Printf("discover: found hub %q at %s://%s:%d", payload.Device.Name, result.Scheme, candidate.Host, candidate.Port)
		}
		return HubLocation{
			Scheme:   result.Scheme,
			Host:     candidate.Host,
			Port:     candidate.Port,
			Identity: payload.Device,
		}, true
	}
	return HubLocation{}, false
}
