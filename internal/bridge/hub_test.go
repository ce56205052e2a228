package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/domain"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/history"
	"github.com/VIPHACKER100/jarvis-bilingual-ai-assistant/internal/ports"
)

type fakeController struct {
	mu      sync.Mutex
	toggles int
	lang    domain.Language
}

func (f *fakeController) Toggle() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toggles++
}

func (f *fakeController) SetLanguage(lang domain.Language) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lang = lang
}

func (f *fakeController) Status() domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Status{State: domain.SessionStateIdle, Language: domain.LanguageEnglish, Volume: 50, Active: f.toggles%2 == 1}
}

func (f *fakeController) snapshot() (int, domain.Language) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles, f.lang
}

type recordingSink struct {
	mu          sync.Mutex
	transcripts []domain.Transcript
	ends        int
	errs        []string
}

func (r *recordingSink) OnTranscript(t domain.Transcript) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, t)
}

func (r *recordingSink) OnEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ends++
}

func (r *recordingSink) OnError(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, code)
}

func (r *recordingSink) counts() (int, int, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transcripts), r.ends, append([]string(nil), r.errs...)
}

var _ ports.CaptureSink = (*recordingSink)(nil)

type testServer struct {
	hub  *Hub
	ctrl *fakeController
	mem  *history.MemorySink
	srv  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		hub:  NewHub(zerolog.Nop()),
		ctrl: &fakeController{},
		mem:  history.NewMemorySink(10),
	}
	ts.hub.SetController(ts.ctrl)

	mux := http.NewServeMux()
	ts.hub.Register(mux, NewUpgrader(nil), ts.mem)
	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	before := ts.hub.Connected()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	waitFor(t, "client registered", func() bool { return ts.hub.Connected() == before+1 })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

// readType reads messages until one of the given type arrives.
func readType(t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Expected %s message, got error: %v", typ, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHub_NoClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if err := hub.Start(context.Background(), ports.CaptureOptions{Language: domain.LanguageEnglish}, &recordingSink{}); !errors.Is(err, ErrNoClient) {
		t.Errorf("Expected ErrNoClient from Start, got %v", err)
	}
	if err := hub.Open("https://www.twitter.com"); !errors.Is(err, ErrNoClient) {
		t.Errorf("Expected ErrNoClient from Open, got %v", err)
	}
	if err := hub.WriteAudio([]byte{0, 1}, 16000); !errors.Is(err, ErrNoClient) {
		t.Errorf("Expected ErrNoClient from WriteAudio, got %v", err)
	}
	if ok, _ := hub.Ready(context.Background()); ok {
		t.Error("Expected hub without clients not to be ready")
	}
	if err := hub.Stop(); err != nil {
		t.Errorf("Expected Stop without client to succeed, got %v", err)
	}
}

func TestHub_SendsStateOnConnect(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	msg := readType(t, conn, TypeState)
	if msg.Status == nil || msg.Status.Volume != 50 {
		t.Errorf("Expected initial status, got %+v", msg.Status)
	}
}

func TestHub_CaptureRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)
	sink := &recordingSink{}

	if err := ts.hub.Start(context.Background(), ports.CaptureOptions{Language: domain.LanguageHindi}, sink); err != nil {
		t.Fatalf("Start: %v", err)
	}
	msg := readType(t, conn, TypeCaptureStart)
	if msg.LangTag != "hi-IN" || msg.Mode != ModeRecognize {
		t.Errorf("Expected recognize in hi-IN, got %+v", msg)
	}

	_ = conn.WriteJSON(Message{Type: TypeTranscript, Text: "open", IsFinal: false})
	_ = conn.WriteJSON(Message{Type: TypeTranscript, Text: "open twitter", IsFinal: true})
	_ = conn.WriteJSON(Message{Type: TypeCaptureEnd})
	_ = conn.WriteJSON(Message{Type: TypeCaptureError, Error: "no-speech"})

	waitFor(t, "sink events", func() bool {
		n, ends, errs := sink.counts()
		return n == 2 && ends == 1 && len(errs) == 1
	})
	sink.mu.Lock()
	final := sink.transcripts[1]
	sink.mu.Unlock()
	if !final.IsFinal || final.Text != "open twitter" {
		t.Errorf("Expected final transcript, got %+v", final)
	}

	if err := ts.hub.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	readType(t, conn, TypeCaptureStop)

	_ = conn.WriteJSON(Message{Type: TypeTranscript, Text: "late", IsFinal: true})
	time.Sleep(30 * time.Millisecond)
	if n, _, _ := sink.counts(); n != 2 {
		t.Errorf("Expected events after Stop to be dropped, got %d transcripts", n)
	}
}

func TestHub_DisconnectFailsOpenCapture(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)
	sink := &recordingSink{}

	if err := ts.hub.Start(context.Background(), ports.CaptureOptions{Language: domain.LanguageEnglish}, sink); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_ = conn.Close()

	waitFor(t, "network error", func() bool {
		_, _, errs := sink.counts()
		return len(errs) == 1 && errs[0] == "network"
	})
	if ts.hub.Connected() != 0 {
		t.Errorf("Expected no clients, got %d", ts.hub.Connected())
	}
}

func TestHub_Broadcasts(t *testing.T) {
	ts := newTestServer(t)
	first := ts.dial(t)
	second := ts.dial(t)

	ts.hub.Speak("Hello Sir, how can I help you?", domain.LanguageEnglish)
	for _, conn := range []*websocket.Conn{first, second} {
		msg := readType(t, conn, TypeSpeak)
		if msg.Text != "Hello Sir, how can I help you?" || msg.LangTag != "en-US" {
			t.Errorf("Expected speak message, got %+v", msg)
		}
	}

	if err := ts.hub.Open("https://www.twitter.com"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if msg := readType(t, first, TypeOpen); msg.URL != "https://www.twitter.com" {
		t.Errorf("Expected open message, got %+v", msg)
	}

	ts.hub.VolumeChanged(70)
	if msg := readType(t, second, TypeVolume); msg.Level == nil || *msg.Level != 70 {
		t.Errorf("Expected volume 70, got %+v", msg.Level)
	}

	_ = ts.hub.Append(context.Background(), domain.CommandResult{ID: "x", Action: domain.ActionTime})
	if msg := readType(t, first, TypeHistory); msg.Entry == nil || msg.Entry.ID != "x" {
		t.Errorf("Expected history entry, got %+v", msg.Entry)
	}
}

func TestHub_ClientCommands(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	_ = conn.WriteJSON(Message{Type: TypeToggle})
	_ = conn.WriteJSON(Message{Type: TypeLanguage, Lang: "hi"})
	_ = conn.WriteJSON(Message{Type: TypeLanguage, Lang: "fr"})

	waitFor(t, "commands", func() bool {
		toggles, lang := ts.ctrl.snapshot()
		return toggles == 1 && lang == domain.LanguageHindi
	})
}

func TestHub_Streaming(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	var mu sync.Mutex
	var received []byte
	ts.hub.SetAudioSink(func(pcm []byte) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, pcm...)
	})

	if err := ts.hub.BeginStreaming(domain.LanguageEnglish); err != nil {
		t.Fatalf("BeginStreaming: %v", err)
	}
	if msg := readType(t, conn, TypeCaptureStart); msg.Mode != ModeStream {
		t.Errorf("Expected stream mode, got %+v", msg)
	}
	_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4})

	waitFor(t, "audio", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 4
	})

	ts.hub.EndStreaming()
	readType(t, conn, TypeCaptureStop)
	_ = conn.WriteMessage(websocket.BinaryMessage, []byte{7, 7})
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	if len(received) != 4 {
		t.Errorf("Expected frames after EndStreaming to be ignored, got %v", received)
	}
	mu.Unlock()

	if err := ts.hub.WriteAudio([]byte{5, 6}, 22050); err != nil {
		t.Fatalf("WriteAudio: %v", err)
	}
	if msg := readType(t, conn, TypeAudioFormat); msg.SampleRate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", msg.SampleRate)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil || kind != websocket.BinaryMessage || len(data) != 2 {
		t.Errorf("Expected binary PCM frame, got kind=%d len=%d err=%v", kind, len(data), err)
	}
}

func TestHTTP_StatusToggleHistory(t *testing.T) {
	ts := newTestServer(t)
	_ = ts.mem.Append(context.Background(), domain.CommandResult{ID: "a", Action: domain.ActionSystem})
	_ = ts.mem.Append(context.Background(), domain.CommandResult{ID: "b", Action: domain.ActionGreeting})

	resp, err := http.Post(ts.srv.URL+"/api/toggle", "application/json", nil)
	if err != nil {
		t.Fatalf("POST toggle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.srv.URL + "/api/toggle")
	if err != nil {
		t.Fatalf("GET toggle: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.srv.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	var status struct {
		Active  bool `json:"active"`
		Volume  int  `json:"volume"`
		Clients int  `json:"clients"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if !status.Active || status.Volume != 50 || status.Clients != 0 {
		t.Errorf("Expected active status with volume 50 and no clients, got %+v", status)
	}

	resp, err = http.Get(ts.srv.URL + "/api/history?limit=1")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	var entries []domain.CommandResult
	_ = json.NewDecoder(resp.Body).Decode(&entries)
	resp.Body.Close()
	if len(entries) != 1 || entries[0].ID != "b" {
		t.Errorf("Expected most recent entry b, got %+v", entries)
	}

	resp, err = http.Get(ts.srv.URL + "/api/history?limit=zero")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", resp.StatusCode)
	}
}
