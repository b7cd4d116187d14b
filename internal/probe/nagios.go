package probe

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
)

const nagiosPath = "/api/v3/onepanel/zone/nagios"

// PassphraseUsername is the fixed user of the Basic auth scheme
// protecting the emergency passphrase endpoints.
const PassphraseUsername = "onepanel"

type healthdata struct {
	Status string `xml:"status,attr"`
}

// Nagios checks the aggregated health report of an already-deployed
// zone. Rejected credentials are authoritative and map to
// StatusDenied, everything else short of an "ok" report means the
// cluster is still starting.
func Nagios(baseURL, passphrase string) Probe {
	client := httpClient()
	url := baseURL + nagiosPath

	return func(ctx context.Context) Status {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return StatusFailed
		}
		req.SetBasicAuth(PassphraseUsername, passphrase)

		resp, err := client.Do(req)
		if err != nil {
			return StatusNotReady
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		switch {
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusForbidden:
			return StatusDenied
		case resp.StatusCode != http.StatusOK:
			return StatusNotReady
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return StatusNotReady
		}
		var health healthdata
		if err := xml.Unmarshal(body, &health); err != nil {
			return StatusNotReady
		}
		if health.Status != "ok" {
			return StatusNotReady
		}
		return StatusReady
	}
}
