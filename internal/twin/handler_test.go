package twin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Vovarama1992/moodtwin-bridge/internal/ai"
)

type testServer struct {
	router    http.Handler
	storePath string
}

func newTestServer(t *testing.T, aiClient ai.AI, echoRaw bool) *testServer {
	t.Helper()
	repo, path := openTestFileRepo(t, true)

	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(NewService(repo, aiClient, NewMockOutbound(), echoRaw)))
	return &testServer{router: r, storePath: path}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) storeBytes(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile(s.storePath)
	if err != nil {
		t.Fatalf("reading store: %v", err)
	}
	return b
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestRootLiveness(t *testing.T) {
	s := newTestServer(t, nil, false)
	rr := s.do(t, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "MoodTwin server is running" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestTrainThenChatFallbackScenario(t *testing.T) {
	s := newTestServer(t, nil, false)

	rr := s.do(t, http.MethodPost, "/api/train", `{"texts":["I love sunny days","Coffee is life"],"twinName":"Sam"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("train status = %d, body=%s", rr.Code, rr.Body.String())
	}
	train := decodeBody(t, rr)
	twinID, ok := train["twinId"].(string)
	if !ok || twinID == "" {
		t.Fatalf("expected string twinId, got %v", train["twinId"])
	}
	if train["ok"] != true {
		t.Fatalf("expected ok=true, got %v", train["ok"])
	}
	profile := train["profile"].(map[string]any)
	if profile["id"] != twinID || profile["twinName"] != "Sam" {
		t.Fatalf("unexpected profile %v", profile)
	}
	texts := profile["texts"].([]any)
	if len(texts) != 2 || texts[0] != "I love sunny days" || texts[1] != "Coffee is life" {
		t.Fatalf("unexpected texts %v", texts)
	}
	if _, ok := profile["createdAt"].(string); !ok {
		t.Fatalf("expected createdAt string, got %v", profile["createdAt"])
	}

	chatBody, _ := json.Marshal(map[string]string{"twinId": twinID, "message": "How's it going?", "mood": "pro"})
	rr = s.do(t, http.MethodPost, "/api/chat", string(chatBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("chat status = %d, body=%s", rr.Code, rr.Body.String())
	}
	chat := decodeBody(t, rr)
	want := "I hear you: \"How's it going?\" (pro) — train me with more messages for better replies."
	if chat["reply"] != want {
		t.Fatalf("reply = %q, want %q", chat["reply"], want)
	}
	if chat["ok"] != true {
		t.Fatalf("expected ok=true")
	}
	if _, present := chat["raw"]; present {
		t.Fatalf("fallback reply must not carry raw")
	}
}

func TestChatDefaultsMoodToNeutral(t *testing.T) {
	s := newTestServer(t, nil, false)
	train := decodeBody(t, s.do(t, http.MethodPost, "/api/train", `{"texts":["x"]}`))
	twinID := train["twinId"].(string)

	if train["profile"].(map[string]any)["twinName"] != DefaultTwinName {
		t.Fatalf("expected default twin name, got %v", train["profile"])
	}

	chat := decodeBody(t, s.do(t, http.MethodPost, "/api/chat", `{"twinId":"`+twinID+`","message":"hi"}`))
	if !strings.Contains(chat["reply"].(string), "(neutral)") {
		t.Fatalf("expected neutral mood in reply, got %q", chat["reply"])
	}
}

func TestTrainValidationLeavesStoreUntouched(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "missing texts", body: `{"twinName":"Sam"}`},
		{name: "empty texts", body: `{"texts":[]}`},
		{name: "null texts", body: `{"texts":null}`},
		{name: "texts not array", body: `{"texts":"hello"}`},
		{name: "malformed json", body: `{"texts":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, nil, false)
			before := s.storeBytes(t)

			rr := s.do(t, http.MethodPost, "/api/train", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if _, ok := decodeBody(t, rr)["error"].(string); !ok {
				t.Fatalf("expected error message")
			}
			if !bytes.Equal(before, s.storeBytes(t)) {
				t.Fatalf("store changed on validation failure")
			}
		})
	}
}

func TestChatValidationAndNotFound(t *testing.T) {
	s := newTestServer(t, nil, false)
	before := s.storeBytes(t)

	cases := []struct {
		body   string
		status int
	}{
		{`{"message":"hi"}`, http.StatusBadRequest},
		{`{"twinId":"abc"}`, http.StatusBadRequest},
		{`{"twinId":"","message":""}`, http.StatusBadRequest},
		{`{"twinId":"nope","message":"hi"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := s.do(t, http.MethodPost, "/api/chat", tc.body)
		if rr.Code != tc.status {
			t.Fatalf("body %s: status = %d, want %d", tc.body, rr.Code, tc.status)
		}
	}
	if !bytes.Equal(before, s.storeBytes(t)) {
		t.Fatalf("store changed by chat requests")
	}
}

func TestGetTwin(t *testing.T) {
	s := newTestServer(t, nil, false)
	train := decodeBody(t, s.do(t, http.MethodPost, "/api/train", `{"texts":["a","b","c"]}`))
	twinID := train["twinId"].(string)

	rr := s.do(t, http.MethodGet, "/api/twins/"+twinID, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	texts := decodeBody(t, rr)["profile"].(map[string]any)["texts"].([]any)
	if len(texts) != 3 || texts[0] != "a" || texts[1] != "b" || texts[2] != "c" {
		t.Fatalf("unexpected texts %v", texts)
	}

	if rr := s.do(t, http.MethodGet, "/api/twins/unknown", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestSendDMAlwaysMockSent(t *testing.T) {
	s := newTestServer(t, nil, false)
	for _, body := range []string{`{"to":"@sam","message":"hi"}`, `{"to":42}`, `[]`, ``} {
		rr := s.do(t, http.MethodPost, "/api/send-dm", body)
		if rr.Code != http.StatusOK {
			t.Fatalf("body %q: status = %d", body, rr.Code)
		}
		got := decodeBody(t, rr)
		if got["ok"] != true || got["status"] != "mock-sent" {
			t.Fatalf("body %q: unexpected response %v", body, got)
		}
	}
}

func TestChatUpstreamSuccessAndFailure(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		code := int(status.Load())
		w.WriteHeader(code)
		if code != http.StatusOK {
			w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		w.Write([]byte(`{"id":"chatcmpl-9","choices":[{"index":0,"message":{"role":"assistant","content":"all good"}}]}`))
	}))
	defer upstream.Close()

	client := ai.NewOpenAIClient(ai.Options{APIKey: "k", BaseURL: upstream.URL, MaxTokens: 400, Temperature: 0.9})
	s := newTestServer(t, client, true)
	twinID := decodeBody(t, s.do(t, http.MethodPost, "/api/train", `{"texts":["x"]}`))["twinId"].(string)
	chatBody := `{"twinId":"` + twinID + `","message":"hi","mood":"dark"}`

	rr := s.do(t, http.MethodPost, "/api/chat", chatBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	got := decodeBody(t, rr)
	if got["reply"] != "all good" {
		t.Fatalf("unexpected reply %v", got["reply"])
	}
	raw, ok := got["raw"].(map[string]any)
	if !ok || raw["id"] != "chatcmpl-9" {
		t.Fatalf("expected raw upstream payload, got %v", got["raw"])
	}

	status.Store(http.StatusTooManyRequests)
	rr = s.do(t, http.MethodPost, "/api/chat", chatBody)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	got = decodeBody(t, rr)
	if got["error"] != "OpenAI API error" {
		t.Fatalf("unexpected error %v", got["error"])
	}
	if got["details"] != `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}` {
		t.Fatalf("expected raw upstream body in details, got %v", got["details"])
	}
}

func TestUnexpectedStoreFailureIs500(t *testing.T) {
	s := newTestServer(t, nil, false)
	if err := os.WriteFile(s.storePath, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupting store: %v", err)
	}

	rr := s.do(t, http.MethodPost, "/api/train", `{"texts":["x"]}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if decodeBody(t, rr)["error"] != "Server error" {
		t.Fatalf("expected generic server error")
	}
}

func TestTrainRejectsOversizedBody(t *testing.T) {
	s := newTestServer(t, nil, false)
	before := s.storeBytes(t)

	body := `{"texts":["` + strings.Repeat("a", maxRequestBodySize+1) + `"]}`
	rr := s.do(t, http.MethodPost, "/api/train", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
	if !bytes.Equal(before, s.storeBytes(t)) {
		t.Fatalf("store changed on oversized body")
	}
}
