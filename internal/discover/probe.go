// Package discover locates a Drift Beacon hub on the local network and
// negotiates which URL scheme it answers on. Probes carry no credentials;
// scheme preference is expressed only by the authentication fallback path,
// never here.
package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rshallam/drift-beacon/internal/hub"
)

// DetectionTimeout bounds a single discovery probe. Probes are expected to
// fail often (wrong scheme, absent hub), so the budget is short.
const DetectionTimeout = 2 * time.Second

// Probe issues one unauthenticated GET against scheme://host:port/path and
// returns the response body on HTTP 200. Connection errors, timeouts, and
// non-200 statuses are all equivalent failures; callers get no partial
// credit for a hub that answered with the wrong status.
func Probe(ctx context.Context, scheme, host string, port int, path string, timeout time.Duration) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := fmt.Sprintf("%s://%s:%d%s", scheme, host, port, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := hub.NewHTTPClient(scheme, timeout).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discover: %s returned HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("discover: %s returned a non-JSON body", url)
	}
	return json.RawMessage(body), nil
}
