package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/etnz/fsa"
	"github.com/etnz/fsa/agent"
	"github.com/etnz/fsa/config"
	"github.com/xuri/excelize/v2"
	"google.golang.org/genai"
)

// workbook returns an xlsx file holding rows below the standard header.
func workbook(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetRow("Sheet1", "A1", &[]any{"Chỉ tiêu", "Năm trước", "Năm sau"}); err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func balanceSheet(t *testing.T) []byte {
	return workbook(t,
		[]any{"TỔNG CỘNG TÀI SẢN", 1000, 1200},
		[]any{"TÀI SẢN NGẮN HẠN", 400, 600},
		[]any{"NỢ NGẮN HẠN", 200, 300},
	)
}

func upload(t *testing.T, h http.Handler, field string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "statement.xlsx")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return v
}

func newTestServer(t *testing.T, opts ...Option) (*Server, http.Handler) {
	t.Helper()
	s := New(config.Default(), log.New(io.Discard), opts...)
	return s, s.Router()
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(h, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, h := newTestServer(t)

	rec := upload(t, h, "file", balanceSheet(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/sessions = %d %s", rec.Code, rec.Body)
	}
	created := decode[SessionResponse](t, rec)
	if created.ID == "" || len(created.Report.Rows) != 3 || created.Cached {
		t.Fatalf("POST /api/sessions = %+v", created)
	}
	if got := created.Report.Liquidity.Current.String(); got != "2.00" {
		t.Errorf("current ratio = %s, want 2.00", got)
	}
	if got := created.Report.Rows[1].Growth; got != 50 {
		t.Errorf("growth = %v, want 50", got)
	}

	path := "/api/sessions/" + created.ID
	rec = do(h, http.MethodGet, path, "")
	if got := decode[SessionResponse](t, rec); rec.Code != http.StatusOK || got.ID != created.ID {
		t.Errorf("GET %s = %d %s", path, rec.Code, rec.Body)
	}

	rec = do(h, http.MethodGet, path+"/report.md", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "TÀI SẢN NGẮN HẠN") {
		t.Errorf("GET report.md = %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, path+"/report.html", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<table>") {
		t.Errorf("GET report.html = %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, path+"/messages", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("GET messages = %d %s", rec.Code, rec.Body)
	}

	// The same file again is served by the memo.
	rec = upload(t, h, "file", balanceSheet(t))
	if again := decode[SessionResponse](t, rec); !again.Cached || again.ID == created.ID {
		t.Errorf("second upload = %+v, want a new cached session", again)
	}

	rec = do(h, http.MethodDelete, path, "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("DELETE %s = %d", path, rec.Code)
	}
	rec = do(h, http.MethodGet, path, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET %s after delete = %d", path, rec.Code)
	}
}

func TestCreateSession_Errors(t *testing.T) {
	_, h := newTestServer(t)
	tests := []struct {
		name    string
		field   string
		content []byte
		status  int
		code    string
	}{
		{"missing total assets", "file", workbook(t, []any{"TÀI SẢN NGẮN HẠN", 1, 2}), http.StatusUnprocessableEntity, "unprocessable_statement"},
		{"no line item", "file", workbook(t), http.StatusUnprocessableEntity, "unprocessable_statement"},
		{"not a workbook", "file", []byte("hello"), http.StatusBadRequest, "invalid_workbook"},
		{"wrong field", "upload", balanceSheet(t), http.StatusBadRequest, "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, h, tt.field, tt.content)
			if rec.Code != tt.status {
				t.Fatalf("POST /api/sessions = %d %s, want %d", rec.Code, rec.Body, tt.status)
			}
			if got := decode[ErrorResponse](t, rec); got.Error != tt.code {
				t.Errorf("error = %+v, want code %q", got, tt.code)
			}
		})
	}
}

func TestCreateSession_TooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxUploadBytes = 1024
	h := New(cfg, log.New(io.Discard)).Router()
	rec := upload(t, h, "file", bytes.Repeat([]byte("x"), 4096))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("POST /api/sessions = %d %s, want 413", rec.Code, rec.Body)
	}
}

func TestUnknownSession(t *testing.T) {
	_, h := newTestServer(t)
	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if rec := do(h, method, "/api/sessions/nope", ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s unknown session = %d", method, rec.Code)
		}
	}
}

func TestAIRoutes_Unavailable(t *testing.T) {
	_, h := newTestServer(t)
	id := decode[SessionResponse](t, upload(t, h, "file", balanceSheet(t))).ID

	for _, tt := range []struct{ path, body string }{
		{"/commentary", ""},
		{"/messages", `{"message":"hi"}`},
	} {
		rec := do(h, http.MethodPost, "/api/sessions/"+id+tt.path, tt.body)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("POST %s = %d %s, want 503", tt.path, rec.Code, rec.Body)
		}
	}
}

type fakeGenerator struct{ calls int }

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	return text("Liquidity is stable."), nil
}

type fakeChats struct{ created int }

func (f *fakeChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig) (agent.Chat, error) {
	f.created++
	return echoChat{}, nil
}

// echoChat answers every message with its text.
type echoChat struct{}

func (echoChat) Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	return text("you said: " + parts[0].Text), nil
}

func text(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}},
	}}}
}

func TestAIRoutes(t *testing.T) {
	gen, chats := &fakeGenerator{}, &fakeChats{}
	_, h := newTestServer(t, WithAI(&agent.Commentator{Models: gen}, chats))
	path := "/api/sessions/" + decode[SessionResponse](t, upload(t, h, "file", balanceSheet(t))).ID

	rec := do(h, http.MethodPost, path+"/commentary", "")
	if got := decode[CommentaryResponse](t, rec); rec.Code != http.StatusOK || got.Commentary != "Liquidity is stable." {
		t.Errorf("POST commentary = %d %s", rec.Code, rec.Body)
	}
	rec = do(h, http.MethodGet, path+"/report.html", "")
	if !strings.Contains(rec.Body.String(), "Liquidity is stable.") {
		t.Errorf("GET report.html does not hold the commentary:\n%s", rec.Body)
	}

	for _, msg := range []string{"hello", "again"} {
		rec = do(h, http.MethodPost, path+"/messages", `{"message":"`+msg+`"}`)
		if got := decode[MessageResponse](t, rec); rec.Code != http.StatusOK || got.Reply != "you said: "+msg {
			t.Errorf("POST messages = %d %s", rec.Code, rec.Body)
		}
	}
	if chats.created != 1 {
		t.Errorf("created %d chats, want 1", chats.created)
	}
	rec = do(h, http.MethodGet, path+"/messages", "")
	if turns := decode[[]agent.Turn](t, rec); len(turns) != 4 || turns[3].Text != "you said: again" {
		t.Errorf("GET messages = %s", rec.Body)
	}

	for _, body := range []string{`{"message":"  "}`, `not json`} {
		if rec := do(h, http.MethodPost, path+"/messages", body); rec.Code != http.StatusBadRequest {
			t.Errorf("POST messages %s = %d, want 400", body, rec.Code)
		}
	}
}

// A request that loaded its session before a concurrent delete finds it closed.
func TestAIRoutes_ClosedSession(t *testing.T) {
	chats := &fakeChats{}
	cfg := config.Default()
	cfg.Server.RequestsPerMinute = 0 // unlimited
	s := New(cfg, log.New(io.Discard), WithAI(&agent.Commentator{Models: &fakeGenerator{}}, chats))
	h := s.Router()
	withChat := decode[SessionResponse](t, upload(t, h, "file", balanceSheet(t))).ID
	if rec := do(h, http.MethodPost, "/api/sessions/"+withChat+"/messages", `{"message":"hello"}`); rec.Code != http.StatusOK {
		t.Fatalf("POST messages = %d %s", rec.Code, rec.Body)
	}
	withoutChat := decode[SessionResponse](t, upload(t, h, "file", balanceSheet(t))).ID

	for _, id := range []string{withChat, withoutChat} {
		e, ok := s.sessions.get(id)
		if !ok {
			t.Fatalf("no session %s", id)
		}
		e.close()
		for _, route := range []string{"/messages", "/commentary"} {
			rec := do(h, http.MethodPost, "/api/sessions/"+id+route, `{"message":"again"}`)
			if rec.Code != http.StatusGone || decode[ErrorResponse](t, rec).Error != "session_closed" {
				t.Errorf("POST %s on a closed session = %d %s, want 410", route, rec.Code, rec.Body)
			}
		}
	}
	if chats.created != 1 {
		t.Errorf("created %d chats, want 1", chats.created)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RequestsPerMinute = 1
	s := New(cfg, log.New(io.Discard), WithAI(&agent.Commentator{Models: &fakeGenerator{}}, &fakeChats{}))
	h := s.Router()
	path := "/api/sessions/" + decode[SessionResponse](t, upload(t, h, "file", balanceSheet(t))).ID

	if rec := do(h, http.MethodPost, path+"/commentary", ""); rec.Code != http.StatusOK {
		t.Fatalf("first POST commentary = %d %s", rec.Code, rec.Body)
	}
	rec := do(h, http.MethodPost, path+"/commentary", "")
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Errorf("second POST commentary = %d, want 429", rec.Code)
	}
	// Other routes are not limited.
	if rec := do(h, http.MethodGet, path, ""); rec.Code != http.StatusOK {
		t.Errorf("GET session = %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	_, h := newTestServer(t)
	upload(t, h, "file", balanceSheet(t))
	do(h, http.MethodGet, "/api/sessions/nope", "")

	rec := do(h, http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{
		`fsa_reports_total{cache="miss"} 1`,
		`fsa_sessions_active 1`,
		`fsa_http_requests_total{code="201",method="POST",route="/api/sessions`,
		`fsa_http_requests_total{code="404",method="GET",route="/api/sessions/{id}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("GET /metrics does not contain %q:\n%s", want, body)
		}
	}
}

func TestStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	st := newStore(time.Minute, 2)
	st.now = func() time.Time { return now }
	r := &fsa.Report{}

	a := st.add(r)
	now = now.Add(50 * time.Second)
	if _, ok := st.get(a.ID); !ok {
		t.Fatal("get() lost a live session")
	}
	now = now.Add(50 * time.Second) // 50s since last use
	if _, ok := st.get(a.ID); !ok {
		t.Fatal("get() lost a session used recently")
	}
	now = now.Add(61 * time.Second)
	if _, ok := st.get(a.ID); ok {
		t.Error("get() returned an expired session")
	}

	// Full store evicts the least recently used.
	b := st.add(r)
	now = now.Add(time.Second)
	c := st.add(r)
	now = now.Add(time.Second)
	st.get(b.ID)
	d := st.add(r)
	if _, ok := st.get(c.ID); ok {
		t.Error("add() kept the least recently used session")
	}
	for _, e := range []*session{b, d} {
		if _, ok := st.get(e.ID); !ok {
			t.Errorf("add() evicted %s", e.ID)
		}
	}
	if st.len() != 2 {
		t.Errorf("len() = %d, want 2", st.len())
	}
	if !st.delete(b.ID) || st.delete(b.ID) {
		t.Error("delete() reports wrongly")
	}
}
