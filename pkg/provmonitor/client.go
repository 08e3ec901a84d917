package provmonitor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultSocketTimeout  = 15 * time.Second
)

// provClient is the southbound HTTP/JSON client to the provisioning
// service: login, the RRM-enabled inventory list, and per-device RRM
// settings.
type provClient struct {
	cfg        config.ProvisioningConfig
	log        logger.Logger
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

func newProvClient(cfg config.ProvisioningConfig, log logger.Logger) *provClient {
	connectTimeout := time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	socketTimeout := time.Duration(cfg.SocketTimeoutMs) * time.Millisecond
	if socketTimeout <= 0 {
		socketTimeout = defaultSocketTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:     dialer.DialContext,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL}, //nolint:gosec -- operator-controlled toggle
	}

	return &provClient{
		cfg:        cfg,
		log:        log,
		httpClient: &http.Client{Timeout: socketTimeout, Transport: transport},
	}
}

func (c *provClient) login(ctx context.Context) error {
	body := loginRequest{UserID: c.cfg.Username, Password: c.cfg.Password}

	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "oauth2", body, &resp); err != nil {
		return fmt.Errorf("provisioning login failed: %w", err)
	}

	if resp.AccessToken == "" {
		return fmt.Errorf("provisioning login failed: response missing access token")
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.mu.Unlock()

	return nil
}

func (c *provClient) ensureLoggedIn(ctx context.Context) error {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()

	if token != "" {
		return nil
	}

	return c.login(ctx)
}

// listRRMEnabledSerials returns every serial number the provisioning
// service currently has RRM enabled for.
func (c *provClient) listRRMEnabledSerials(ctx context.Context) ([]string, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	var resp serialNumberList
	if err := c.doJSON(ctx, http.MethodGet, "inventory?rrmOnly=true", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list RRM-enabled inventory: %w", err)
	}

	return resp.Serials, nil
}

// getRRMDetails returns serial's RRM-relevant provisioning record.
func (c *provClient) getRRMDetails(ctx context.Context, serial string) (*rrmDetails, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("inventory/%s?rrmSettings=true", serial)

	var resp rrmDetails
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch RRM details for %s: %w", serial, err)
	}

	return &resp, nil
}

func (c *provClient) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	url := fmt.Sprintf("%s/api/v1/%s", strings.TrimRight(c.cfg.Endpoint, "/"), endpoint)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := respBody
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}

		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
