package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/etnz/fsa"
	"google.golang.org/genai"
)

func report(t *testing.T) *fsa.Report {
	t.Helper()
	r, err := fsa.DefaultAnalyzer().Analyze(fsa.NewStatement(
		fsa.Row{Label: "TOTAL ASSETS", Prior: 1000, Current: 1200},
		fsa.Row{Label: "CURRENT ASSETS", Prior: 400, Current: 600},
		fsa.Row{Label: "CURRENT LIABILITIES", Prior: 200, Current: 300},
	))
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return r
}

func text(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: s}}},
	}}}
}

func call(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: "model", Parts: []*genai.Part{{
			FunctionCall: &genai.FunctionCall{ID: "call-1", Name: name, Args: args},
		}}},
	}}}
}

// fakeChat replays replies, the last one forever.
type fakeChat struct {
	replies []*genai.GenerateContentResponse
	err     error
	sent    [][]*genai.Part
}

func (f *fakeChat) Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error) {
	f.sent = append(f.sent, parts)
	if f.err != nil {
		return nil, f.err
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r, nil
}

type fakeChats struct {
	chat   *fakeChat
	model  string
	config *genai.GenerateContentConfig
}

func (f *fakeChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig) (Chat, error) {
	f.model, f.config = model, config
	return f.chat, nil
}

func newSession(t *testing.T, chat *fakeChat) (*Session, *fakeChats) {
	t.Helper()
	chats := &fakeChats{chat: chat}
	s, err := NewSession(context.Background(), chats, Options{Language: "Vietnamese"}, report(t))
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s, chats
}

func TestNewSession(t *testing.T) {
	s, chats := newSession(t, &fakeChat{})
	if s.ID == "" {
		t.Error("NewSession() has no ID")
	}
	if chats.model != DefaultModel {
		t.Errorf("NewSession() model = %q, want %q", chats.model, DefaultModel)
	}
	instruction := chats.config.SystemInstruction.Parts[0].Text
	for _, want := range []string{"| CURRENT ASSETS | 400 | 600 |", "Answer in Vietnamese.", "Current ratio (Current year): 2.00"} {
		if !strings.Contains(instruction, want) {
			t.Errorf("system instruction does not contain %q:\n%s", want, instruction)
		}
	}
	if got := len(chats.config.Tools[0].FunctionDeclarations); got != 2 {
		t.Errorf("NewSession() declares %d functions, want 2", got)
	}

	if _, err := NewSession(context.Background(), nil, Options{}, report(t)); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewSession(nil) error = %v, want %v", err, ErrNoAPIKey)
	}
}

func TestSession_Send(t *testing.T) {
	chat := &fakeChat{replies: []*genai.GenerateContentResponse{
		call("LineItem", map[string]any{"label": "current assets"}),
		text("Current assets grew by 50%."),
	}}
	s, _ := newSession(t, chat)

	got, err := s.Send(context.Background(), "How did current assets evolve?")
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got != "Current assets grew by 50%." {
		t.Errorf("Send() = %q", got)
	}

	if len(chat.sent) != 2 {
		t.Fatalf("Send() sent %d messages, want 2", len(chat.sent))
	}
	resp := chat.sent[1][0].FunctionResponse
	if resp == nil || resp.Name != "LineItem" || resp.ID != "call-1" {
		t.Fatalf("second message = %+v, want the LineItem response", chat.sent[1][0])
	}
	items, ok := resp.Response["output"].([]lineItemOutput)
	if !ok || len(items) != 1 || items[0].Label != "CURRENT ASSETS" || items[0].Growth != 50 {
		t.Errorf("LineItem output = %#v", resp.Response)
	}

	tr := s.Transcript()
	if len(tr) != 2 || tr[0].Role != "user" || tr[1].Role != "model" || tr[1].Text != got {
		t.Errorf("Transcript() = %+v", tr)
	}
}

func TestSession_Send_Errors(t *testing.T) {
	ctx := context.Background()

	s, _ := newSession(t, &fakeChat{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}})
	if _, err := s.Send(ctx, "hi"); !errors.Is(err, ErrAPI) {
		t.Errorf("Send() error = %v, want %v", err, ErrAPI)
	}

	s, _ = newSession(t, &fakeChat{replies: []*genai.GenerateContentResponse{{}}})
	if _, err := s.Send(ctx, "hi"); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Send() error = %v, want %v", err, ErrEmptyResponse)
	}

	loop := &fakeChat{replies: []*genai.GenerateContentResponse{call("Liquidity", nil)}}
	s, _ = newSession(t, loop)
	if _, err := s.Send(ctx, "hi"); err == nil {
		t.Error("Send() want an error when the model never stops calling functions")
	}
	if len(loop.sent) != maxToolRounds+1 {
		t.Errorf("Send() sent %d messages, want %d", len(loop.sent), maxToolRounds+1)
	}

	s, _ = newSession(t, &fakeChat{replies: []*genai.GenerateContentResponse{text("ok")}})
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Send(ctx, "hi"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Send() after Close() error = %v, want %v", err, ErrSessionClosed)
	}
}

func TestTools(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(Tools(report(t)))

	tests := []struct {
		name      string
		call      *genai.FunctionCall
		wantError bool
	}{
		{"liquidity", &genai.FunctionCall{Name: "Liquidity"}, false},
		{"line item", &genai.FunctionCall{Name: "LineItem", Args: map[string]any{"label": "total"}}, false},
		{"unknown line item", &genai.FunctionCall{Name: "LineItem", Args: map[string]any{"label": "inventories"}}, true},
		{"missing label", &genai.FunctionCall{Name: "LineItem"}, true},
		{"unknown function", &genai.FunctionCall{Name: "Holdings"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := lib(ctx, tt.call)
			_, hasError := resp.Response["error"]
			if hasError != tt.wantError {
				t.Errorf("response = %v, want error %v", resp.Response, tt.wantError)
			}
			if resp.Name != tt.call.Name {
				t.Errorf("response name = %q, want %q", resp.Name, tt.call.Name)
			}
		})
	}

	resp := lib(ctx, &genai.FunctionCall{Name: "Liquidity"})
	want := map[string]string{"prior": "2.00", "current": "2.00", "delta": "+0.00"}
	got, _ := resp.Response["output"].(map[string]string)
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Liquidity()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model, f.contents = model, contents
	return f.resp, f.err
}

func TestCommentator_Comment(t *testing.T) {
	ctx := context.Background()
	gen := &fakeGenerator{resp: text("A sound balance sheet.")}
	c := &Commentator{Models: gen, Options: Options{Model: "gemini-test", Temperature: 0.2}}

	got, err := c.Comment(ctx, report(t))
	if err != nil {
		t.Fatalf("Comment() error = %v", err)
	}
	if got != "A sound balance sheet." {
		t.Errorf("Comment() = %q", got)
	}
	if gen.model != "gemini-test" {
		t.Errorf("Comment() model = %q", gen.model)
	}
	p := gen.contents[0].Parts[0].Text
	for _, want := range []string{"financial analyst", "Answer in English.", "| TOTAL ASSETS | 1000 | 1200 | 20.00 | 100.00 | 100.00 |"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt does not contain %q:\n%s", want, p)
		}
	}

	gen.err = genai.APIError{Code: 400, Status: "INVALID_ARGUMENT", Message: "API key not valid"}
	if _, err := c.Comment(ctx, report(t)); !errors.Is(err, ErrAPI) {
		t.Errorf("Comment() error = %v, want %v", err, ErrAPI)
	}

	gen.err, gen.resp = nil, &genai.GenerateContentResponse{}
	if _, err := c.Comment(ctx, report(t)); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Comment() error = %v, want %v", err, ErrEmptyResponse)
	}

	var none *Commentator
	if _, err := none.Comment(ctx, report(t)); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("Comment() error = %v, want %v", err, ErrNoAPIKey)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	if _, err := NewClient(context.Background(), ""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewClient() error = %v, want %v", err, ErrNoAPIKey)
	}
}

func TestAgent_Run(t *testing.T) {
	chat := &fakeChat{replies: []*genai.GenerateContentResponse{text("first answer"), text("second answer")}}
	s, _ := newSession(t, chat)

	var out bytes.Buffer
	a := New(&out, strings.NewReader("\nwhat next?\nbye\nnever sent\n"), s)
	if err := a.Run(context.Background(), "  ", "explain the ratio"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{"assist> explain the ratio\nfirst answer\n", "second answer\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("Run() output does not contain %q:\n%s", want, got)
		}
	}
	if len(chat.sent) != 2 {
		t.Errorf("Run() sent %d messages, want 2", len(chat.sent))
	}

	// End of input without "bye".
	out.Reset()
	a = New(&out, strings.NewReader("last words"), s)
	if err := a.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if len(chat.sent) != 3 {
		t.Errorf("Run() sent %d messages, want 3", len(chat.sent))
	}
}
