package probe

import (
	"context"
	"net/http"
)

const panelAPIPath = "/api/v3/onepanel/"

// Panel checks whether the onepanel REST listener accepts connections.
// Any HTTP response, including an error status, proves the listener is
// up; only transport failures count as not ready.
func Panel(baseURL string) Probe {
	client := httpClient()
	url := baseURL + panelAPIPath

	return func(ctx context.Context) Status {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return StatusFailed
		}
		resp, err := client.Do(req)
		if err != nil {
			return StatusNotReady
		}
		_ = resp.Body.Close()
		return StatusReady
	}
}
