package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	api "github.com/mind-engage/examhub/internal/api/http"
	"github.com/mind-engage/examhub/internal/attempt"
	auth "github.com/mind-engage/examhub/internal/auth/middleware"
	"github.com/mind-engage/examhub/internal/exam"
	syncx "github.com/mind-engage/examhub/internal/sync"
)

/* ---------------- test server ---------------- */

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	t      *testing.T
	srv    *httptest.Server
	clock  *clock
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := exam.NewInMemoryStore()
	clk := &clock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	events := &syncx.MemoryLog{}
	eng := attempt.NewEngine(store, attempt.WithClock(clk.Now), attempt.WithEvents(events, "test"))
	t.Cleanup(eng.Close)

	svc := auth.NewAuthService("api-test-secret")
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(svc))
		api.Mount(pr, api.Deps{
			Catalog: exam.NewCatalog(store),
			Engine:  eng,
			Events:  events,
			Tick:    10 * time.Millisecond,
		})
	})
	ts := &testServer{t: t, srv: httptest.NewServer(r), clock: clk, tokens: map[string]string{}}
	t.Cleanup(ts.srv.Close)

	for _, p := range []auth.Profile{
		{ID: "t-1", Role: "teacher"},
		{ID: "t-2", Role: "teacher"},
		{ID: "s-1", Role: "student"},
		{ID: "s-2", Role: "student"},
		{ID: "root", Role: "admin"},
	} {
		tok, err := svc.IssueJWT(p)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		ts.tokens[p.ID] = tok
	}
	return ts
}

func (ts *testServer) do(who, method, path string, body interface{}) (int, []byte) {
	ts.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rd = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, ts.srv.URL+path, rd)
	if tok := ts.tokens[who]; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

func (ts *testServer) expect(want int, who, method, path string, body interface{}) []byte {
	ts.t.Helper()
	code, b := ts.do(who, method, path, body)
	if code != want {
		ts.t.Fatalf("%s %s as %q: status %d, want %d: %s", method, path, who, code, want, b)
	}
	return b
}

const examBody = `{
	"title": "Animals",
	"time_limit": %d,
	"questions": [
		{"id":"q1","type":"multiple_choice","question":"Pick B","options":["A","B","C"],"correct_answer":"B","points":1},
		{"id":"q2","type":"multiple_choice","question":"Pick X and Z","options":["X","Y","Z"],"correct_answer":["X","Z"],"points":1},
		{"id":"q3","type":"short_answer","question":"Say Dog","correct_answer":"Dog","points":1}
	]
}`

func (ts *testServer) createExam(minutes int) exam.Exam {
	ts.t.Helper()
	b := ts.expect(http.StatusCreated, "t-1", http.MethodPost, "/exams",
		strings.Replace(examBody, "%d", strconv.Itoa(minutes), 1))
	var e exam.Exam
	if err := json.Unmarshal(b, &e); err != nil {
		ts.t.Fatalf("decode exam: %v", err)
	}
	return e
}

type startResp struct {
	Attempt struct {
		ID        string   `json:"id"`
		Status    string   `json:"status"`
		Score     *float64 `json:"score"`
		StartedAt string   `json:"started_at"`
	} `json:"attempt"`
	Timer struct {
		Active       bool `json:"active"`
		RemainingSec int  `json:"remaining_sec"`
	} `json:"timer"`
}

func (ts *testServer) start(who, examID string) startResp {
	ts.t.Helper()
	var sr startResp
	b := ts.expect(http.StatusOK, who, http.MethodPost, "/exams/"+examID+"/attempts", nil)
	if err := json.Unmarshal(b, &sr); err != nil {
		ts.t.Fatalf("decode start: %v", err)
	}
	return sr
}

/* ---------------- flows ---------------- */

func TestExamFlow_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	e := ts.createExam(30)

	// Students never see answer keys.
	list := ts.expect(http.StatusOK, "s-1", http.MethodGet, "/exams", nil)
	if strings.Contains(string(list), "correct_answer") || !strings.Contains(string(list), e.ID) {
		t.Fatalf("student exam list = %s", list)
	}
	one := ts.expect(http.StatusOK, "s-1", http.MethodGet, "/exams/"+e.ID, nil)
	if strings.Contains(string(one), "correct_answer") {
		t.Fatalf("student exam view leaks keys: %s", one)
	}
	full := ts.expect(http.StatusOK, "t-1", http.MethodGet, "/exams/"+e.ID, nil)
	if !strings.Contains(string(full), "correct_answer") {
		t.Fatalf("owner view lacks keys: %s", full)
	}

	first := ts.start("s-1", e.ID)
	if first.Attempt.Status != exam.StatusInProgress || !first.Timer.Active || first.Timer.RemainingSec != 30*60 {
		t.Fatalf("start = %+v", first)
	}
	ts.clock.Advance(10 * time.Minute)
	second := ts.start("s-1", e.ID)
	if second.Attempt.ID != first.Attempt.ID || second.Timer.RemainingSec != 20*60 {
		t.Fatalf("resume = %+v", second)
	}
	id := first.Attempt.ID

	ts.expect(http.StatusOK, "s-1", http.MethodPut, "/attempts/"+id+"/answers/q1", `{"answer":"B"}`)
	ts.expect(http.StatusOK, "s-1", http.MethodPost, "/attempts/"+id+"/answers",
		`{"answers":[{"question_id":"q2","answer":["X","Y","Z"]},{"question_id":"q3","answer":"Cat"}]}`)
	ts.expect(http.StatusBadRequest, "s-1", http.MethodPut, "/attempts/"+id+"/answers/q9", `{"answer":"B"}`)
	ts.expect(http.StatusBadRequest, "s-1", http.MethodPut, "/attempts/"+id+"/answers/q1", `{"answer":7}`)
	ts.expect(http.StatusForbidden, "s-2", http.MethodPut, "/attempts/"+id+"/answers/q1", `{"answer":"A"}`)
	ts.expect(http.StatusConflict, "s-1", http.MethodGet, "/attempts/"+id+"/results", nil)

	b := ts.expect(http.StatusOK, "s-1", http.MethodPost, "/attempts/"+id+"/submit", nil)
	var submitted struct {
		Status string  `json:"status"`
		Score  float64 `json:"score"`
	}
	_ = json.Unmarshal(b, &submitted)
	if submitted.Status != exam.StatusSubmitted || submitted.Score != 0.33 {
		t.Fatalf("submit = %s", b)
	}
	ts.expect(http.StatusConflict, "s-1", http.MethodPost, "/attempts/"+id+"/submit", nil)
	ts.expect(http.StatusConflict, "s-1", http.MethodPut, "/attempts/"+id+"/answers/q1", `{"answer":"A"}`)

	rep := ts.expect(http.StatusOK, "s-1", http.MethodGet, "/attempts/"+id+"/results", nil)
	if !strings.Contains(string(rep), `"score":0.33`) {
		t.Fatalf("results = %s", rep)
	}

	ts.expect(http.StatusOK, "t-1", http.MethodGet, "/attempts/"+id, nil)
	ts.expect(http.StatusForbidden, "t-2", http.MethodGet, "/attempts/"+id, nil)
	ts.expect(http.StatusForbidden, "s-2", http.MethodGet, "/attempts/"+id, nil)
	ts.expect(http.StatusOK, "t-1", http.MethodGet, "/exams/"+e.ID+"/attempts", nil)
	ts.expect(http.StatusForbidden, "t-2", http.MethodGet, "/exams/"+e.ID+"/attempts", nil)

	mine := ts.expect(http.StatusOK, "s-1", http.MethodGet, "/attempts", nil)
	if !strings.Contains(string(mine), id) {
		t.Fatalf("own attempts = %s", mine)
	}
	evs := ts.expect(http.StatusOK, "root", http.MethodGet, "/events", nil)
	if !strings.Contains(string(evs), syncx.TypeAttemptSubmitted) {
		t.Fatalf("events = %s", evs)
	}
}

func TestExamFlow_Permissions(t *testing.T) {
	ts := newTestServer(t)
	e := ts.createExam(0)

	ts.expect(http.StatusUnauthorized, "", http.MethodGet, "/exams", nil)
	ts.expect(http.StatusForbidden, "s-1", http.MethodPost, "/exams", strings.Replace(examBody, "%d", "0", 1))
	ts.expect(http.StatusForbidden, "t-1", http.MethodPost, "/exams/"+e.ID+"/attempts", nil)
	ts.expect(http.StatusForbidden, "t-2", http.MethodPost, "/exams/"+e.ID+"/toggle", nil)
	ts.expect(http.StatusForbidden, "s-1", http.MethodGet, "/events", nil)
	ts.expect(http.StatusNotFound, "s-1", http.MethodPost, "/exams/missing/attempts", nil)
	ts.expect(http.StatusBadRequest, "t-1", http.MethodPost, "/exams", `{"title":"","questions":[]}`)

	ts.expect(http.StatusOK, "t-1", http.MethodPost, "/exams/"+e.ID+"/toggle", nil)
	ts.expect(http.StatusNotFound, "s-1", http.MethodGet, "/exams/"+e.ID, nil)
	ts.expect(http.StatusNotFound, "s-1", http.MethodPost, "/exams/"+e.ID+"/attempts", nil)

	ts.expect(http.StatusForbidden, "t-2", http.MethodDelete, "/exams/"+e.ID, nil)
	ts.expect(http.StatusNoContent, "t-1", http.MethodDelete, "/exams/"+e.ID, nil)
	ts.expect(http.StatusNotFound, "t-1", http.MethodGet, "/exams/"+e.ID, nil)
}

/* ---------------- timer stream ---------------- */

func readMsg(t *testing.T, c *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := c.ReadJSON(&m); err != nil {
		t.Fatalf("read ws: %v", err)
	}
	return m.Type, m.Payload
}

func dialTimer(t *testing.T, ts *testServer, who, attemptID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/attempts/" + attemptID + "/timer?access_token=" + ts.tokens[who]
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestTimerStream_AutoSubmitsAtZero(t *testing.T) {
	ts := newTestServer(t)
	e := ts.createExam(1)
	sr := ts.start("s-1", e.ID)
	c := dialTimer(t, ts, "s-1", sr.Attempt.ID)

	typ, payload := readMsg(t, c)
	if typ != "timer_update" || !strings.Contains(string(payload), `"remaining_sec":60`) {
		t.Fatalf("first message = %s %s", typ, payload)
	}

	ts.clock.Advance(2 * time.Minute)
	var sawTimeUp bool
	for {
		typ, payload = readMsg(t, c)
		if typ == "time_up" {
			sawTimeUp = true
			continue
		}
		if typ == "submitted" {
			break
		}
		if typ != "timer_update" {
			t.Fatalf("unexpected message %s %s", typ, payload)
		}
	}
	if !sawTimeUp || !strings.Contains(string(payload), `"status":"submitted"`) {
		t.Fatalf("time_up=%v final=%s", sawTimeUp, payload)
	}
	ts.expect(http.StatusConflict, "s-1", http.MethodPost, "/attempts/"+sr.Attempt.ID+"/submit", nil)
}

func TestTimerStream_ManualSubmitEndsStream(t *testing.T) {
	ts := newTestServer(t)
	e := ts.createExam(30)
	sr := ts.start("s-1", e.ID)
	c := dialTimer(t, ts, "s-1", sr.Attempt.ID)

	if typ, _ := readMsg(t, c); typ != "timer_update" {
		t.Fatalf("first message = %s", typ)
	}
	if err := c.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	ts.expect(http.StatusOK, "s-1", http.MethodPost, "/attempts/"+sr.Attempt.ID+"/submit", nil)
	for {
		typ, _ := readMsg(t, c)
		if typ == "submitted" {
			return
		}
		if typ != "timer_update" && typ != "pong" {
			t.Fatalf("unexpected message %s", typ)
		}
	}
}

func TestTimerStream_RejectsForeignViewer(t *testing.T) {
	ts := newTestServer(t)
	e := ts.createExam(30)
	sr := ts.start("s-1", e.ID)
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/attempts/" + sr.Attempt.ID + "/timer?access_token=" + ts.tokens["s-2"]
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("foreign viewer connected")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v", resp)
	}
}
