package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/famescale/internal/adapter"
	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/internal/fame"
	"github.com/kapu/famescale/internal/service/cache"
	"go.uber.org/zap"
)

type switchableSource struct {
	mu   sync.Mutex
	text string
	err  error
}

func (s *switchableSource) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text, s.err
}

func (s *switchableSource) set(text string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text, s.err = text, err
}

func newTestServer(t *testing.T, src *switchableSource) (*Server, *httptest.Server) {
	t.Helper()
	categories, err := domain.LoadDefaultCategories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	svc := fame.NewService(src, fame.NewParser(cache.NewMemoryStore(), zap.NewNop()), categories, zap.NewNop())
	s := New(svc, zap.NewNop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.hub.Close()
		ts.Close()
	})
	return s, ts
}

func getJSON(t *testing.T, rawURL string, dest any) int {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode %s: %v", rawURL, err)
	}
	return resp.StatusCode
}

const serverFameText = "Alice|http://x/a.png|Supernatural|8|Powerful witch\nBob||Human|3|\nAlice||Magic|9|Again\n"

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, &switchableSource{})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestFameEndpoint(t *testing.T) {
	_, ts := newTestServer(t, &switchableSource{text: serverFameText})

	var view adapter.SnapshotView
	if status := getJSON(t, ts.URL+"/api/fame", &view); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if view.Stale {
		t.Fatalf("expected fresh snapshot")
	}
	if len(view.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(view.Categories))
	}
	supernatural := view.Categories[0]
	if len(supernatural.Records) != 2 || supernatural.Records[0].Level != 9 {
		t.Fatalf("unexpected supernatural records %+v", supernatural.Records)
	}
	if len(view.Characters) != 2 || view.Characters[0].Level != 9 {
		t.Fatalf("expected best Alice card first, got %+v", view.Characters)
	}
}

func TestCharactersEndpoints(t *testing.T) {
	_, ts := newTestServer(t, &switchableSource{text: serverFameText})

	var cards []*adapter.RecordView
	getJSON(t, ts.URL+"/api/characters?q=BO", &cards)
	if len(cards) != 1 || cards[0].Character != "Bob" {
		t.Fatalf("unexpected search result %+v", cards)
	}

	var alice adapter.RecordView
	if status := getJSON(t, ts.URL+"/api/characters/"+url.PathEscape("alice"), &alice); status != http.StatusOK {
		t.Fatalf("unexpected status %d", status)
	}
	if alice.Level != 9 || alice.Description != "Again" {
		t.Fatalf("unexpected character %+v", alice)
	}

	var notFound map[string]string
	if status := getJSON(t, ts.URL+"/api/characters/Nobody", &notFound); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestRefreshFallsBackToCachedSnapshot(t *testing.T) {
	src := &switchableSource{text: serverFameText}
	_, ts := newTestServer(t, src)

	var fresh adapter.SnapshotView
	getJSON(t, ts.URL+"/api/fame", &fresh)

	src.set("", fmt.Errorf("HTTP error! status: 503"))

	resp, err := http.Post(ts.URL+"/api/refresh", "application/json", strings.NewReader(""))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var stale adapter.SnapshotView
	if err := json.NewDecoder(resp.Body).Decode(&stale); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !stale.Stale || stale.Notice == "" {
		t.Fatalf("expected stale snapshot with notice, got %+v", stale)
	}
	if len(stale.Characters) != len(fresh.Characters) {
		t.Fatalf("expected cached characters, got %d want %d", len(stale.Characters), len(fresh.Characters))
	}
}

func TestWebSocketReceivesSnapshots(t *testing.T) {
	src := &switchableSource{text: "Bob||Human|3|\n"}
	s, ts := newTestServer(t, src)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var initial Message
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	if initial.Type != MessageTypeSnapshot || len(initial.Data.Characters) != 1 {
		t.Fatalf("unexpected initial message %+v", initial)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	src.set("Bob||Human|3|\nAlice||Magic|8|\n", nil)
	s.Refresh(context.Background())

	var update Message
	if err := conn.ReadJSON(&update); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if len(update.Data.Characters) != 2 {
		t.Fatalf("expected 2 characters in pushed snapshot, got %+v", update.Data.Characters)
	}
}

func TestBroadcastDropsClosedClients(t *testing.T) {
	s, ts := newTestServer(t, &switchableSource{text: "Bob||Human|3|\n"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	var initial Message
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("closed client was not removed")
		}
		s.Refresh(context.Background())
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	categories, _ := domain.LoadDefaultCategories()
	svc := fame.NewService(&switchableSource{text: "Bob||Human|3|\n"}, fame.NewParser(cache.NewMemoryStore(), zap.NewNop()), categories, zap.NewNop())
	s := New(svc, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, "127.0.0.1:0", 0)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for s.Snapshot() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("initial refresh did not run")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

type ctxRecordingSource struct {
	mu   sync.Mutex
	errs []error
}

func (s *ctxRecordingSource) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, ctx.Err())
	return "Bob||Human|3|\n", nil
}

func TestRefreshIgnoresRequestCancellation(t *testing.T) {
	categories, _ := domain.LoadDefaultCategories()
	src := &ctxRecordingSource{}
	svc := fame.NewService(src, fame.NewParser(cache.NewMemoryStore(), zap.NewNop()), categories, zap.NewNop())
	s := New(svc, zap.NewNop())
	defer s.hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var view adapter.SnapshotView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Stale || len(view.Characters) != 1 {
		t.Fatalf("expected fresh snapshot despite cancelled request, got %+v", view)
	}
	for i, err := range src.errs {
		if err != nil {
			t.Fatalf("load %d saw cancelled context: %v", i, err)
		}
	}
}
