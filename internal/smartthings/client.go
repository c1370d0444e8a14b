// Package smartthings reads device status from the SmartThings REST API.
package smartthings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"acexporter/internal/exporter"
	"acexporter/internal/ordered"
)

const (
	// DefaultBaseURL is the public SmartThings API root.
	DefaultBaseURL = "https://api.smartthings.com/v1"
	// DefaultComponent is the component exported when none is configured.
	DefaultComponent = "main"

	maxDevicePages = 50
	maxErrorBody   = 2048
)

// Options configures a Client.
// Params: BaseURL API root; Token bearer token; Timeout per-request limit; Component status
// component to export; Refresh additionally POSTs a refresh capability command before the status read;
// HTTPClient optional transport.
// Returns: client options.
type Options struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Component  string
	Refresh    bool
	HTTPClient *http.Client
}

// Client implements exporter.StatusSource over the SmartThings API.
type Client struct {
	baseURL   *url.URL
	token     string
	component string
	refresh   bool
	http      *http.Client
	logger    *slog.Logger
}

type deviceItem struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Label    string `json:"label"`
}

type devicePage struct {
	Items []deviceItem `json:"items"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

type command struct {
	Component  string `json:"component"`
	Capability string `json:"capability"`
	Command    string `json:"command"`
}

// NewClient validates options and builds a client.
// Params: opts client settings; logger diagnostics sink (nil discards).
// Returns: client or validation error.
func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, fmt.Errorf("smartthings token is required")
	}

	rawBase := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if rawBase == "" {
		rawBase = DefaultBaseURL
	}
	base, err := url.Parse(rawBase)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", rawBase)
	}

	component := strings.TrimSpace(opts.Component)
	if component == "" {
		component = DefaultComponent
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:   base,
		token:     token,
		component: component,
		refresh:   opts.Refresh,
		http:      httpClient,
		logger:    logger,
	}, nil
}

// FetchDeviceStatus lists devices, picks the first accepted by selector and reads its status.
// Params: ctx bounds all requests; selector device predicate.
// Returns: status document of the configured component or AuthError/DeviceNotFoundError/NetworkError.
func (c *Client) FetchDeviceStatus(ctx context.Context, selector exporter.DeviceSelector) (exporter.Document, error) {
	device, err := c.findDevice(ctx, selector)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("device selected", "id", device.ID, "name", device.Name, "label", device.Label)

	if c.refresh {
		if err := c.refreshDevice(ctx, device.ID); err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn("device refresh failed", "id", device.ID, "error", err)
		}
	}

	statusURL := c.endpoint("devices", device.ID, "status")
	payload, err := c.do(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}

	doc, err := componentDocument(payload, c.component)
	if err != nil {
		return nil, &NetworkError{Op: "decode status", URL: statusURL, Err: err}
	}
	return doc, nil
}

func (c *Client) findDevice(ctx context.Context, selector exporter.DeviceSelector) (exporter.DeviceRef, error) {
	next := c.endpoint("devices")
	scanned := 0

	for page := 0; next != "" && page < maxDevicePages; page++ {
		payload, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return exporter.DeviceRef{}, err
		}

		var decoded devicePage
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return exporter.DeviceRef{}, &NetworkError{Op: "decode devices", URL: next, Err: err}
		}

		for _, item := range decoded.Items {
			scanned++
			ref := exporter.DeviceRef{ID: item.DeviceID, Name: item.Name, Label: item.Label}
			if selector.Match(ref) {
				return ref, nil
			}
		}

		next = ""
		if decoded.Links.Next != nil && strings.TrimSpace(decoded.Links.Next.Href) != "" {
			next, err = c.resolve(decoded.Links.Next.Href)
			if err != nil {
				return exporter.DeviceRef{}, &NetworkError{Op: "follow devices page", Err: err}
			}
		}
	}

	return exporter.DeviceRef{}, &DeviceNotFoundError{Selector: describe(selector), Scanned: scanned}
}

func (c *Client) refreshDevice(ctx context.Context, deviceID string) error {
	body, err := json.Marshal(map[string][]command{
		"commands": {{Component: c.component, Capability: "refresh", Command: "refresh"}},
	})
	if err != nil {
		return fmt.Errorf("encode refresh command: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, c.endpoint("devices", deviceID, "commands"), body)
	return err
}

func (c *Client) do(ctx context.Context, method string, target string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &NetworkError{Op: "build request", URL: target, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: readErrorBody(resp.Body)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var cause error
		if text := readErrorBody(resp.Body); text != "" {
			cause = errors.New(text)
		}
		return nil, &NetworkError{Op: method, URL: target, StatusCode: resp.StatusCode, Err: cause}
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, int64(exporter.MaxStatusBytes)+1))
	if err != nil {
		return nil, &NetworkError{Op: "read response", URL: target, Err: err}
	}
	if len(payload) > exporter.MaxStatusBytes {
		return nil, &NetworkError{Op: "read response", URL: target, Err: fmt.Errorf("body exceeds %d bytes", exporter.MaxStatusBytes)}
	}
	return payload, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.Join(escaped, "/")
}

func (c *Client) resolve(href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return c.baseURL.ResolveReference(ref).String(), nil
}

// componentDocument turns a device status payload into a flat attribute document.
// Params: payload is the /status response; component selects components.<name>.
// Returns: one field per capability attribute carrying its "value", in payload order.
func componentDocument(payload []byte, component string) (exporter.Document, error) {
	root, err := ordered.Members(payload)
	if err != nil {
		return nil, err
	}
	rawComponents, ok := ordered.Find(root, "components")
	if !ok {
		return nil, fmt.Errorf("status has no components")
	}
	components, err := ordered.Members(rawComponents)
	if err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}
	rawComponent, ok := ordered.Find(components, component)
	if !ok {
		return nil, fmt.Errorf("component %q not present", component)
	}
	capabilities, err := ordered.Members(rawComponent)
	if err != nil {
		return nil, fmt.Errorf("component %q: %w", component, err)
	}

	doc := make(exporter.Document, 0, len(capabilities)*2)
	for _, capability := range capabilities {
		if !ordered.IsObject(capability.Raw) {
			continue
		}
		attributes, err := ordered.Members(capability.Raw)
		if err != nil {
			return nil, fmt.Errorf("capability %q: %w", capability.Key, err)
		}
		for _, attribute := range attributes {
			if !ordered.IsObject(attribute.Raw) {
				continue
			}
			state, err := ordered.Members(attribute.Raw)
			if err != nil {
				return nil, fmt.Errorf("attribute %s.%s: %w", capability.Key, attribute.Key, err)
			}
			rawValue, ok := ordered.Find(state, "value")
			if !ok {
				continue
			}
			value, err := exporter.ParseValue(rawValue)
			if err != nil {
				return nil, fmt.Errorf("attribute %s.%s: %w", capability.Key, attribute.Key, err)
			}
			doc = append(doc, exporter.Field{Name: attribute.Key, Value: value})
		}
	}
	return doc, nil
}

func readErrorBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(body))
}

func describe(selector exporter.DeviceSelector) string {
	if s, ok := selector.(fmt.Stringer); ok {
		return s.String()
	}
	return "selector"
}
