// Package deploy drives the batch-mode zone deployment through the
// onepanel REST API.
package deploy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"

	"github.com/onedata/onezone-launcher/internal/probe"
)

const (
	passphrasePath    = "/api/v3/onepanel/emergency_passphrase"
	configurationPath = "/api/v3/onepanel/zone/configuration"
)

// ErrAuthentication indicates the panel rejected the emergency
// passphrase. During configuration it means an existing deployment
// owns a different passphrase.
var ErrAuthentication = errors.New("authentication rejected by onepanel")

var errTaskRunning = errors.New("configuration task still running")

type Client struct {
	base       *url.URL
	passphrase string
	hc         *http.Client
	interval   time.Duration
}

func NewClient(baseURL, passphrase string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing panel url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.New("panel url needs a scheme and a host, e.g. https://127.0.0.1:9443")
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return &Client{
		base:       parsed,
		passphrase: passphrase,
		interval:   time.Second,
		hc: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}, nil
}

// WithInterval changes the task poll interval. For unit testing only.
func (c *Client) WithInterval(d time.Duration) *Client {
	c.interval = d
	return c
}

// SetEmergencyPassphrase registers the passphrase of a fresh
// deployment. ErrAuthentication means a passphrase is already set and
// differs, which identifies an existing deployment.
func (c *Client) SetEmergencyPassphrase(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"newPassphrase": c.passphrase})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.base.String()+passphrasePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return ErrAuthentication
	case resp.StatusCode >= 300:
		text, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("could not set the emergency passphrase: %d %s",
			resp.StatusCode, text)
	}
	return nil
}

// Configure attempts to deploy the zone described by cfg. It reports
// false without an error when configuration was skipped because an
// existing deployment was found. Progress lines (one per deployment
// step) are delivered through progress.
func (c *Client) Configure(ctx context.Context, cfg map[string]any, progress func(string)) (bool, error) {
	err := c.SetEmergencyPassphrase(ctx)
	if errors.Is(err, ErrAuthentication) {
		// passphrase setup failure indicates an existing deployment
		return false, nil
	}
	if err != nil {
		return false, err
	}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encoding zone configuration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.base.String()+configurationPath, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-yaml")
	req.SetBasicAuth(probe.PassphraseUsername, c.passphrase)

	resp, err := c.hc.Do(req)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return false, ErrAuthentication
	case resp.StatusCode == http.StatusConflict:
		return false, nil
	case resp.StatusCode >= 300:
		text, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf(
			"failed to start the configuration process, the response was:\n"+
				"  code: %d\n  body: %s\nFor more information please check the logs.",
			resp.StatusCode, text)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return false, errors.New("configuration accepted but no task location returned")
	}

	if err := c.awaitTask(ctx, location, progress); err != nil {
		return false, err
	}
	return true, nil
}

type taskStatus struct {
	Status string       `json:"status"`
	Steps  []string     `json:"steps"`
	Error  *serverError `json:"error"`
}

// awaitTask polls the asynchronous configuration task until it leaves
// the running state, reporting freshly appeared steps on the way.
func (c *Client) awaitTask(ctx context.Context, location string, progress func(string)) error {
	var last taskStatus
	var pending []string

	op := func() error {
		status, err := c.taskStatus(ctx, location)
		if err != nil {
			return backoff.Permanent(err)
		}
		last = status

		// report only steps not seen in the previous poll
		steps := status.Steps
		for _, step := range steps {
			if len(pending) > 0 && step == pending[0] {
				pending = pending[1:]
				continue
			}
			if progress != nil {
				progress(formatStep(step))
			}
		}
		pending = status.Steps

		if status.Status == "running" {
			return errTaskRunning
		}
		return nil
	}

	bo := backoff.WithContext(backoff.NewConstantBackOff(c.interval), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return err
	}

	if last.Status != "ok" {
		return errors.New(formatServerError(last.Error))
	}
	return nil
}

func (c *Client) taskStatus(ctx context.Context, location string) (taskStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.base.String()+location, nil)
	if err != nil {
		return taskStatus{}, err
	}
	req.SetBasicAuth(probe.PassphraseUsername, c.passphrase)

	resp, err := c.hc.Do(req)
	if err != nil {
		return taskStatus{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return taskStatus{}, ErrAuthentication
	case resp.StatusCode >= 300:
		text, _ := io.ReadAll(resp.Body)
		return taskStatus{}, fmt.Errorf(
			"unexpected configuration error\n%s\nFor more information please check the logs.",
			text)
	}

	var status taskStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return taskStatus{}, fmt.Errorf("decoding task status: %w", err)
	}
	if status.Status == "" {
		status.Status = "error"
	}
	return status, nil
}

// formatStep renders "service:action" as a progress line.
func formatStep(step string) string {
	service, action, found := strings.Cut(step, ":")
	if !found {
		return "* " + step
	}
	return fmt.Sprintf("* %s: %s", service, action)
}
