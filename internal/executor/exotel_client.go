package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/propertyhub/voice-agent/internal/config"
)

// ExotelClient places outbound calls via Exotel's Calls/connect.json API,
// authenticating with HTTP Basic auth against the account's API key/token.
type ExotelClient struct {
	accountSID     string
	apiKey         string
	apiToken       string
	virtualNumber  string
	flowID         string
	baseURL        string
	httpClient     *http.Client
}

// NewExotelClient builds an ExotelClient from configuration.
func NewExotelClient(cfg *config.Config) *ExotelClient {
	return &ExotelClient{
		accountSID:    cfg.ExotelAccountSID,
		apiKey:        cfg.ExotelAPIKey,
		apiToken:      cfg.ExotelAPIToken,
		virtualNumber: cfg.ExotelVirtualNumber,
		flowID:        cfg.ExotelFlowID,
		baseURL:       fmt.Sprintf("https://api.exotel.com/v1/Accounts/%s/", cfg.ExotelAccountSID),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

type exotelCallResponse struct {
	Call struct {
		SID    string `json:"Sid"`
		Status string `json:"Status"`
	} `json:"Call"`
}

// PlaceCall implements executor.TelephonyClient.
func (c *ExotelClient) PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error) {
	customFieldJSON, err := json.Marshal(req.CustomField)
	if err != nil {
		return nil, fmt.Errorf("exotel: marshal custom field: %w", err)
	}

	form := url.Values{}
	form.Set("From", c.virtualNumber)
	form.Set("To", req.To)
	callerID := req.CallerID
	if callerID == "" {
		callerID = c.virtualNumber
	}
	form.Set("CallerId", callerID)
	form.Set("CustomField", string(customFieldJSON))
	form.Set("Record", strconv.FormatBool(req.Record))
	if req.StatusCallbackURL != "" {
		form.Set("StatusCallback", req.StatusCallbackURL)
	}
	if c.flowID != "" {
		form.Set("Url", fmt.Sprintf("http://my.exotel.com/exoml/start/%s", c.flowID))
	}

	endpoint := c.baseURL + "Calls/connect.json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("exotel: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(c.apiKey, c.apiToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("exotel: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("exotel: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("exotel: connect.json returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed exotelCallResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("exotel: decode response: %w", err)
	}
	if parsed.Call.SID == "" {
		return nil, fmt.Errorf("exotel: response missing Call.Sid")
	}

	return &CallResult{ProviderCallID: parsed.Call.SID, Status: parsed.Call.Status}, nil
}
