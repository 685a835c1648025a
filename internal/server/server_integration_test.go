package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/wandcast/internal/arbiter"
	"github.com/ayusman/wandcast/internal/intent"
	"github.com/ayusman/wandcast/internal/store"
	"github.com/ayusman/wandcast/internal/templates"
)

type fakeApp struct {
	utterances []string
}

func (f *fakeApp) Status() any {
	return map[string]string{"mode": "recognition"}
}

func (f *fakeApp) ExportTemplates(ctx context.Context) (templates.ExportReport, error) {
	return templates.ExportReport{Destination: "/tmp/out", Copied: []string{"a.xml"}}, nil
}

func (f *fakeApp) SubmitUtterance(ctx context.Context, text string) error {
	f.utterances = append(f.utterances, text)
	return nil
}

func TestAPI_TemplateAndCastWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	app := &fakeApp{}
	srv := New(Config{Store: s, Status: app, Exporter: app, Voice: app})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	if err := s.Templates().Upsert(&store.Template{
		ID:       "t1",
		Label:    "cast_protego",
		FileName: "cast_protego_20240115_100000.xml",
		Path:     []store.Point{{X: 0, Y: 0}, {X: 1, Y: 0}},
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := s.Casts().Create(&store.Cast{ID: "c1", Spell: "cast_protego", Policy: "both"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// 1. List templates
	resp, err := client.Get(ts.URL + "/api/templates")
	if err != nil {
		t.Fatalf("GET /api/templates error = %v", err)
	}
	var listed struct {
		Templates []struct {
			ID string `json:"id"`
		} `json:"templates"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed.Templates) != 1 || listed.Templates[0].ID != "t1" {
		t.Fatalf("templates = %+v, want [t1]", listed.Templates)
	}

	// 2. Export
	resp, err = client.Post(ts.URL+"/api/templates/export", "application/json", nil)
	if err != nil {
		t.Fatalf("POST export error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST export status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 3. Cast journal
	resp, _ = client.Get(ts.URL + "/api/casts/c1")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/casts/c1 status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	// 4. Voice
	resp, err = client.Post(ts.URL+"/api/voice", "application/json", strings.NewReader(`{"text":"protego"}`))
	if err != nil {
		t.Fatalf("POST /api/voice error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST /api/voice status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if len(app.utterances) != 1 || app.utterances[0] != "protego" {
		t.Errorf("utterances = %v, want [protego]", app.utterances)
	}
}

func TestEventHub_BroadcastsCasts(t *testing.T) {
	hub := NewEventHub()
	ts := httptest.NewServer(New(Config{Events: hub}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	// Registration happens after the upgrade completes on the server side.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", hub.Len())
	}

	hub.OnCast(arbiter.Decision{
		ID:      "d1",
		Spell:   "cast_stupefy",
		Policy:  arbiter.PolicyBoth,
		Gesture: &intent.Result{Label: "cast_stupefy", Confidence: 0.95, Source: intent.SourceTemplate},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var event struct {
		Kind    string           `json:"kind"`
		Payload arbiter.Decision `json:"payload"`
	}
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if event.Kind != "cast" || event.Payload.Spell != "cast_stupefy" {
		t.Errorf("event = %+v, want cast of cast_stupefy", event)
	}
}

func TestEventHub_NoClients(t *testing.T) {
	hub := NewEventHub()
	hub.Broadcast("status", map[string]string{"mode": "training"})
	if hub.Len() != 0 {
		t.Errorf("Len() = %d, want 0", hub.Len())
	}
}
