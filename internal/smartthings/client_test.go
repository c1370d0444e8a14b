package smartthings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"acexporter/internal/exporter"
)

const statusPayload = `{
	"components": {
		"main": {
			"switch": {"switch": {"value": "on", "timestamp": "2024-05-01T10:00:00Z"}},
			"airConditionerFanMode": {
				"fanMode": {"value": "high"},
				"supportedAcFanModes": {"value": ["auto", "low", "high"]}
			},
			"powerConsumptionReport": {
				"powerConsumption": {"value": {"energy": 1200, "power": 0.5}}
			},
			"temperatureMeasurement": {"temperature": {"value": 23.5, "unit": "C"}},
			"refresh": {}
		},
		"sub": {"switch": {"switch": {"value": "off"}}}
	}
}`

type fakeAPI struct {
	server   *httptest.Server
	refresh  atomic.Int32
	status   int
	refreshC int
	devices  int

	mu    sync.Mutex
	calls []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{status: http.StatusOK, refreshC: http.StatusOK, devices: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /devices", func(w http.ResponseWriter, r *http.Request) {
		if !api.authorized(w, r) {
			return
		}
		if api.devices != http.StatusOK {
			w.WriteHeader(api.devices)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"items":[{"deviceId":"dev-ac","name":"Samsung Room A/C","label":"Bedroom"}],"_links":{"next":null}}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"deviceId":"dev-tv","name":"Samsung TV","label":"Living room"}],"_links":{"next":{"href":"` + api.server.URL + `/devices?page=2"}}}`))
	})
	mux.HandleFunc("POST /devices/{id}/commands", func(w http.ResponseWriter, r *http.Request) {
		if !api.authorized(w, r) {
			return
		}
		api.refresh.Add(1)
		w.WriteHeader(api.refreshC)
		_, _ = w.Write([]byte(`{"results":[]}`))
	})
	mux.HandleFunc("GET /devices/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		if !api.authorized(w, r) {
			return
		}
		if r.PathValue("id") != "dev-ac" {
			http.NotFound(w, r)
			return
		}
		if api.status != http.StatusOK {
			http.Error(w, "upstream trouble", api.status)
			return
		}
		_, _ = w.Write([]byte(statusPayload))
	})
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.calls = append(api.calls, r.Method+" "+r.URL.Path)
		api.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer secret" {
		http.Error(w, `{"error":"invalid_token"}`, http.StatusUnauthorized)
		return false
	}
	return true
}

func (a *fakeAPI) client(t *testing.T, opts Options) *Client {
	t.Helper()

	opts.BaseURL = a.server.URL
	if opts.Token == "" {
		opts.Token = "secret"
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	client, err := NewClient(opts, nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return client
}

func TestFetchDeviceStatusSelectsAcrossPages(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client(t, Options{Refresh: true})

	doc, err := client.FetchDeviceStatus(context.Background(), NewSelector("", "Samsung Room A/C", ""))
	if err != nil {
		t.Fatalf("FetchDeviceStatus() error: %v", err)
	}

	want := exporter.Document{
		{Name: "switch", Value: exporter.StringValue("on")},
		{Name: "fanMode", Value: exporter.StringValue("high")},
		{Name: "supportedAcFanModes", Value: exporter.Scalar{Kind: exporter.KindOpaque, Str: `["auto", "low", "high"]`}},
		{Name: "powerConsumption", Value: exporter.Nested{
			{Name: "energy", Value: exporter.NumberValue(1200)},
			{Name: "power", Value: exporter.NumberValue(0.5)},
		}},
		{Name: "temperature", Value: exporter.NumberValue(23.5)},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("unexpected document:\n got=%#v\nwant=%#v", doc, want)
	}
	if got := api.refresh.Load(); got != 1 {
		t.Fatalf("expected one refresh command, got %d", got)
	}
}

func (a *fakeAPI) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}

func TestFetchDeviceStatusDefaultOptionsOnlyRead(t *testing.T) {
	api := newFakeAPI(t)
	client, err := NewClient(Options{BaseURL: api.server.URL, Token: "secret"}, nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if _, err := client.FetchDeviceStatus(context.Background(), NewSelector("", "Samsung Room A/C", "")); err != nil {
		t.Fatalf("FetchDeviceStatus() error: %v", err)
	}

	want := []string{"GET /devices", "GET /devices", "GET /devices/dev-ac/status"}
	if got := api.recorded(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected API calls: got=%v want=%v", got, want)
	}
	if got := api.refresh.Load(); got != 0 {
		t.Fatalf("default client sent %d refresh commands", got)
	}
}

func TestFetchDeviceStatusComponent(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client(t, Options{Component: "sub"})

	doc, err := client.FetchDeviceStatus(context.Background(), NewSelector("dev-ac", "", ""))
	if err != nil {
		t.Fatalf("FetchDeviceStatus() error: %v", err)
	}
	want := exporter.Document{{Name: "switch", Value: exporter.StringValue("off")}}
	if !reflect.DeepEqual(doc, want) {
		t.Fatalf("unexpected document: %#v", doc)
	}
	if got := api.refresh.Load(); got != 0 {
		t.Fatalf("refresh disabled but %d commands sent", got)
	}
}

func TestFetchDeviceStatusErrors(t *testing.T) {
	t.Run("auth", func(t *testing.T) {
		api := newFakeAPI(t)
		client := api.client(t, Options{Token: "wrong"})

		_, err := client.FetchDeviceStatus(context.Background(), NewSelector("", "", ""))
		var authErr *AuthError
		if !errors.As(err, &authErr) || authErr.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected *AuthError 401, got %T %v", err, err)
		}
	})

	t.Run("device not found", func(t *testing.T) {
		api := newFakeAPI(t)
		client := api.client(t, Options{})

		_, err := client.FetchDeviceStatus(context.Background(), NewSelector("", "Fridge*", ""))
		var notFound *DeviceNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected *DeviceNotFoundError, got %T %v", err, err)
		}
		if notFound.Scanned != 2 {
			t.Fatalf("expected both pages scanned, got %d", notFound.Scanned)
		}
	})

	t.Run("server error", func(t *testing.T) {
		api := newFakeAPI(t)
		api.status = http.StatusBadGateway
		client := api.client(t, Options{})

		_, err := client.FetchDeviceStatus(context.Background(), NewSelector("", "samsung room*", ""))
		var netErr *NetworkError
		if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusBadGateway {
			t.Fatalf("expected *NetworkError 502, got %T %v", err, err)
		}
	})

	t.Run("missing component", func(t *testing.T) {
		api := newFakeAPI(t)
		client := api.client(t, Options{Component: "absent"})

		_, err := client.FetchDeviceStatus(context.Background(), NewSelector("dev-ac", "", ""))
		var netErr *NetworkError
		if !errors.As(err, &netErr) || netErr.Op != "decode status" {
			t.Fatalf("expected decode *NetworkError, got %T %v", err, err)
		}
	})

	t.Run("transport", func(t *testing.T) {
		api := newFakeAPI(t)
		client := api.client(t, Options{})
		api.server.Close()

		_, err := client.FetchDeviceStatus(context.Background(), NewSelector("", "", ""))
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("expected *NetworkError, got %T %v", err, err)
		}
	})
}

func TestFetchDeviceStatusRefreshFailureIsNotFatal(t *testing.T) {
	api := newFakeAPI(t)
	api.refreshC = http.StatusUnprocessableEntity
	client := api.client(t, Options{Refresh: true})

	doc, err := client.FetchDeviceStatus(context.Background(), NewSelector("dev-ac", "", ""))
	if err != nil {
		t.Fatalf("FetchDeviceStatus() error: %v", err)
	}
	if len(doc) == 0 {
		t.Fatalf("expected status document after failed refresh")
	}
}

func TestFetchDeviceStatusHonoursContext(t *testing.T) {
	api := newFakeAPI(t)
	client := api.client(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchDeviceStatus(ctx, NewSelector("", "", ""))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{}, nil); err == nil {
		t.Fatalf("expected missing token error")
	}
	if _, err := NewClient(Options{Token: "x", BaseURL: "ftp://example"}, nil); err == nil {
		t.Fatalf("expected scheme error")
	}

	client, err := NewClient(Options{Token: "x"}, nil)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if got := client.endpoint("devices", "a b", "status"); got != DefaultBaseURL+"/devices/a%20b/status" {
		t.Fatalf("unexpected endpoint: %s", got)
	}
	if client.component != DefaultComponent {
		t.Fatalf("unexpected default component %q", client.component)
	}
}
