package app

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ldrmorse/pkg/app/config"
	"ldrmorse/pkg/archive"
	"ldrmorse/pkg/port"
	"ldrmorse/pkg/synth"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Gpio.DisableGpio = true

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	if a.archive, err = archive.Open(filepath.Join(t.TempDir(), "messages.db"), 10); err != nil {
		t.Fatalf("open archive: %v", err)
	}
	a.initDefaultRoutes()

	t.Cleanup(func() { _ = a.Close() })
	return a
}

func request(t *testing.T, a *App, method, target string, body []byte, v interface{}) int {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.web.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if v != nil && resp.StatusCode < 300 {
		if err = json.Unmarshal(b, v); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, target, b, err)
		}
	}
	return resp.StatusCode
}

func TestSessionRoutes(t *testing.T) {
	a := newTestApp(t)

	if code := request(t, a, http.MethodGet, "/message", nil, nil); code != http.StatusNotFound {
		t.Fatalf("message before session: %d", code)
	}
	if code := request(t, a, http.MethodPost, "/session/end", nil, nil); code != http.StatusConflict {
		t.Fatalf("end without begin: %d", code)
	}

	if code := request(t, a, http.MethodPost, "/session/begin", nil, nil); code != http.StatusOK {
		t.Fatalf("begin: %d", code)
	}
	if a.captureLED.(*port.Memory).State() != port.High || a.readyLED.(*port.Memory).State() != port.Low {
		t.Fatalf("leds not switched to capture")
	}

	samples, err := synth.Encode("SOS", synth.DefaultOptions())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	body, _ := json.Marshal(samplesRequest{Values: samples})

	var recorded struct{ Samples int }
	if code := request(t, a, http.MethodPost, "/session/sample", body, &recorded); code != http.StatusOK {
		t.Fatalf("sample: %d", code)
	}
	if recorded.Samples != len(samples) {
		t.Fatalf("recorded %d samples, want %d", recorded.Samples, len(samples))
	}

	var state struct {
		State   string
		Samples int
	}
	if code := request(t, a, http.MethodGet, "/session", nil, &state); code != http.StatusOK || state.State != "capturing" {
		t.Fatalf("session: %d %+v", code, state)
	}

	var m archive.Message
	if code := request(t, a, http.MethodPost, "/session/end", nil, &m); code != http.StatusOK {
		t.Fatalf("end: %d", code)
	}
	if m.Text != "SOS" || m.Samples != len(samples) || m.Error != "" {
		t.Fatalf("message=%+v", m)
	}
	if a.readyLED.(*port.Memory).State() != port.High || a.errorLED.(*port.Memory).State() != port.Low {
		t.Fatalf("leds not switched to ready")
	}

	var last archive.Message
	if code := request(t, a, http.MethodGet, "/message", nil, &last); code != http.StatusOK || last.Text != "SOS" {
		t.Fatalf("message: %d %+v", code, last)
	}

	var history []archive.Message
	if code := request(t, a, http.MethodGet, "/sessions?limit=1", nil, &history); code != http.StatusOK {
		t.Fatalf("sessions: %d", code)
	}
	if len(history) != 1 || history[0].Text != "SOS" || history[0].Fingerprint != m.Fingerprint {
		t.Fatalf("history=%+v", history)
	}
	if code := request(t, a, http.MethodGet, "/sessions?limit=0", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid limit: %d", code)
	}
}

func TestFailedSession(t *testing.T) {
	a := newTestApp(t)

	if code := request(t, a, http.MethodPost, "/session/sample", []byte(`{"values":[1]}`), nil); code != http.StatusConflict {
		t.Fatalf("sample without begin: %d", code)
	}

	request(t, a, http.MethodPost, "/session/begin", nil, nil)
	for _, body := range []string{`{"values":[-1]}`, `{"values":[1024]}`} {
		if code := request(t, a, http.MethodPost, "/session/sample", []byte(body), nil); code != http.StatusBadRequest {
			t.Fatalf("sample %s: %d", body, code)
		}
	}
	request(t, a, http.MethodPost, "/session/sample", []byte(`{"values":[500,501,500,502]}`), nil)

	if code := request(t, a, http.MethodPost, "/session/end", nil, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("end without contrast: %d", code)
	}
	if a.errorLED.(*port.Memory).State() != port.High {
		t.Fatalf("error led not set")
	}

	n, err := a.archive.Count()
	if err != nil || n != 1 {
		t.Fatalf("archived %d,%v", n, err)
	}
}

func TestDefaultRoutes(t *testing.T) {
	a := newTestApp(t)

	var v struct {
		Version     string
		Description string
	}
	if code := request(t, a, http.MethodGet, "/version", nil, &v); code != http.StatusOK {
		t.Fatalf("version: %d", code)
	}
	if v.Version != VERSION || v.Description != MODULE {
		t.Fatalf("version=%+v", v)
	}

	var h struct {
		Session          string
		ArchivedMessages int
		Version          string
	}
	if code := request(t, a, http.MethodGet, "/health", nil, &h); code != http.StatusOK {
		t.Fatalf("health: %d", code)
	}
	if h.Session != "idle" || h.ArchivedMessages != 0 || h.Version != VERSION {
		t.Fatalf("health=%+v", h)
	}

	if Version() != "ldrmorse V1.0.10" {
		t.Fatalf("Version()=%q", Version())
	}
}

func TestDisabledWebservice(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Webserver.Webservices = map[string]bool{"version": true}

	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	a.initDefaultRoutes()
	defer a.Close()

	if code := request(t, a, http.MethodGet, "/health", nil, nil); code != http.StatusNotFound {
		t.Fatalf("disabled health: %d", code)
	}
	if code := request(t, a, http.MethodPost, "/session/begin", nil, nil); code != http.StatusNotFound {
		t.Fatalf("disabled control: %d", code)
	}
}
