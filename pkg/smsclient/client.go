/**
 * @description
 * This package provides a client for a bulk SMS HTTP gateway (Fast2SMS-compatible).
 * It posts a JSON message with the API key in the authorization header.
 *
 * @dependencies
 * - bytes, context, encoding/json, net/http: Standard Go libraries.
 */
package smsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client sends SMS messages through the gateway.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new SMS gateway client.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL: strings.TrimSpace(apiURL),
		apiKey: strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type sendRequest struct {
	Route    string `json:"route"`
	SenderID string `json:"sender_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Flash    int    `json:"flash"`
	Numbers  string `json:"numbers"`
}

type sendResponse struct {
	Return  bool            `json:"return"`
	Message json.RawMessage `json:"message"`
}

// Send delivers message to one phone number.
func (c *Client) Send(ctx context.Context, phone, message string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sms gateway api key not configured")
	}
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return fmt.Errorf("sms destination is empty")
	}

	payload, err := json.Marshal(sendRequest{
		Route:    "v3",
		SenderID: "TXTIND",
		Message:  message,
		Language: "english",
		Flash:    0,
		Numbers:  phone,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err == nil && !parsed.Return {
		return fmt.Errorf("sms gateway rejected message: %s", string(parsed.Message))
	}
	return nil
}
