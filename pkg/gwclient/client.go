// Package gwclient implements the southbound HTTP/JSON client to the
// device-gateway: login, device listing, and the per-device statistics,
// wifi-scan, capabilities, configure, and script endpoints.
package gwclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/config"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/logger"
	"github.com/RockyMandayam2/wlan-cloud-rrm/pkg/models"
)

const (
	defaultConnectTimeout  = 5 * time.Second
	defaultSocketTimeout   = 15 * time.Second
	defaultWifiScanTimeout = 30 * time.Second
)

// Client is the device-gateway HTTP/JSON client. It satisfies
// modeler.DeviceGatewayClient (Ready, ListDevices, LatestState) and exposes
// the broader southbound surface pkg/configapplier dispatches actions
// through.
type Client struct {
	cfg            config.GatewayConfig
	log            logger.Logger
	httpClient     *http.Client
	wifiScanClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// New builds a Client from cfg. It does not perform login -- call Login or
// rely on the first request triggering it via ensureLoggedIn.
func New(cfg config.GatewayConfig, log logger.Logger) *Client {
	connectTimeout := time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	socketTimeout := time.Duration(cfg.SocketTimeoutMs) * time.Millisecond
	if socketTimeout <= 0 {
		socketTimeout = defaultSocketTimeout
	}

	wifiScanTimeout := time.Duration(cfg.WifiScanTimeoutMs) * time.Millisecond
	if wifiScanTimeout <= 0 {
		wifiScanTimeout = defaultWifiScanTimeout
	}

	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:     dialer.DialContext,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifySSL}, //nolint:gosec -- operator-controlled toggle
	}

	return &Client{
		cfg:            cfg,
		log:            log,
		httpClient:     &http.Client{Timeout: socketTimeout, Transport: transport},
		wifiScanClient: &http.Client{Timeout: wifiScanTimeout, Transport: transport},
	}
}

// Login exchanges username/password for a bearer access token. It is safe
// to call again to refresh an expired token.
func (c *Client) Login(ctx context.Context) error {
	body := loginRequest{UserID: c.cfg.Username, Password: c.cfg.Password}

	var resp loginResponse
	if err := c.doJSON(ctx, c.httpClient, http.MethodPost, "oauth2", body, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if resp.AccessToken == "" {
		return fmt.Errorf("login failed: response missing access token")
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.mu.Unlock()

	c.log.Info().Str("username", c.cfg.Username).Msg("device-gateway login successful")

	return nil
}

func (c *Client) ensureLoggedIn(ctx context.Context) error {
	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()

	if token != "" {
		return nil
	}

	return c.Login(ctx)
}

// Ready reports whether the client holds a valid access token, attempting
// a login if it does not. Used by the Modeler to gate startup backfill
// until the gateway is reachable.
func (c *Client) Ready(ctx context.Context) bool {
	return c.ensureLoggedIn(ctx) == nil
}

// ListDevices returns every device serial number known to the gateway.
func (c *Client) ListDevices(ctx context.Context) ([]string, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	var resp deviceListResponse
	if err := c.doJSON(ctx, c.httpClient, http.MethodGet, "devices?deviceWithStatus=true", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	serials := make([]string, len(resp.DevicesWithStatus))
	for i, d := range resp.DevicesWithStatus {
		serials[i] = d.SerialNumber
	}

	return serials, nil
}

// LatestState fetches the single newest telemetry state reported for
// serial, or (nil, nil) if the device has never reported one.
func (c *Client) LatestState(ctx context.Context, serial string) (*models.State, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("device/%s/statistics?newest=true&limit=1", serial)

	var resp statisticsRecordsResponse
	if err := c.doJSON(ctx, c.httpClient, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch statistics for %s: %w", serial, err)
	}

	if len(resp.Data) == 0 {
		return nil, nil
	}

	state := resp.Data[0].Data.State

	return &state, nil
}

// LaunchWifiScan requests a wifi scan on serial, using the longer
// wifi-scan-specific socket timeout since a scan may take tens of seconds
// to complete (every channel gets a listen window).
func (c *Client) LaunchWifiScan(ctx context.Context, serial string, verbose bool) (*CommandInfo, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	body := wifiScanRequest{SerialNumber: serial, Verbose: verbose}

	var resp CommandInfo
	endpoint := fmt.Sprintf("device/%s/wifiscan", serial)
	if err := c.doJSON(ctx, c.wifiScanClient, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to launch wifiscan for %s: %w", serial, err)
	}

	return &resp, nil
}

// Configure pushes a new device configuration (already serialized into the
// gateway's configuration format by pkg/configapplier) to serial.
func (c *Client) Configure(ctx context.Context, serial, configuration string) (*CommandInfo, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	body := configureRequest{
		SerialNumber:  serial,
		UUID:          rand.Int63(),
		Configuration: configuration,
	}

	var resp CommandInfo
	endpoint := fmt.Sprintf("device/%s/configure", serial)
	if err := c.doJSON(ctx, c.httpClient, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", serial, err)
	}

	return &resp, nil
}

// GetCapabilities fetches serial's radio capability report, keyed by band.
func (c *Client) GetCapabilities(ctx context.Context, serial string) (map[string]models.Phy, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	var resp capabilitiesResponse
	endpoint := fmt.Sprintf("device/%s/capabilities", serial)
	if err := c.doJSON(ctx, c.httpClient, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch capabilities for %s: %w", serial, err)
	}

	return resp.Capabilities.Phy, nil
}

// RunScript runs a shell or ucode script on serial and returns the
// gateway's command acknowledgement.
func (c *Client) RunScript(ctx context.Context, serial, script string, timeoutSec int, scriptType string) (*CommandInfo, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	if scriptType == "" {
		scriptType = "shell"
	}

	body := scriptRequest{
		SerialNumber: serial,
		Timeout:      timeoutSec,
		Type:         scriptType,
		Script:       script,
		ScriptID:     "1",
	}

	var resp CommandInfo
	endpoint := fmt.Sprintf("device/%s/script", serial)
	if err := c.doJSON(ctx, c.httpClient, http.MethodPost, endpoint, body, &resp); err != nil {
		return nil, fmt.Errorf("failed to run script on %s: %w", serial, err)
	}

	return &resp, nil
}

// doJSON issues an HTTP request to endpoint under the configured base
// endpoint, attaching the bearer token, encoding body (if non-nil) as the
// JSON request payload, and decoding the response into out (if non-nil).
func (c *Client) doJSON(ctx context.Context, client *http.Client, method, endpoint string, body, out interface{}) error {
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

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("response status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
