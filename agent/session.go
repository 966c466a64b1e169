package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/etnz/fsa"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Chat is a conversation with history, *genai.Chat is one.
type Chat interface {
	Send(ctx context.Context, parts ...*genai.Part) (*genai.GenerateContentResponse, error)
}

// Chats creates chats.
type Chats interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig) (Chat, error)
}

// GeminiChats returns the chats of client.
func GeminiChats(client *genai.Client) Chats { return geminiChats{client.Chats} }

type geminiChats struct{ chats *genai.Chats }

func (g geminiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig) (Chat, error) {
	chat, err := g.chats.Create(ctx, model, config, nil)
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// maxToolRounds bounds the function calls resolved for a single message.
const maxToolRounds = 8

// Turn is a message of the transcript.
type Turn struct {
	Role string    `json:"role"` // "user" or "model"
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Session is a chat about a report.
//
// A Session is safe for concurrent use, messages are sent one at a time.
type Session struct {
	ID      string
	Report  *fsa.Report
	Created time.Time

	mu       sync.Mutex
	chat     Chat
	library  Library
	turns    []Turn
	lastUsed time.Time
	closed   bool
}

// NewSession opens a chat whose system instruction holds r.
func NewSession(ctx context.Context, chats Chats, o Options, r *fsa.Report) (*Session, error) {
	if chats == nil {
		return nil, ErrNoAPIKey
	}
	instruction, err := buildPrompt("assistant.tmpl", o, r)
	if err != nil {
		return nil, err
	}
	tools := Tools(r)
	config := o.config()
	config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	config.Tools = []*genai.Tool{{FunctionDeclarations: NewDeclaration(tools)}}

	chat, err := chats.Create(ctx, o.model(), config)
	if err != nil {
		return nil, fmt.Errorf("could not start chat: %w", wrap(err))
	}
	now := time.Now()
	return &Session{
		ID:       uuid.NewString(),
		Report:   r,
		Created:  now,
		chat:     chat,
		library:  NewLibrary(tools),
		lastUsed: now,
	}, nil
}

// Send sends text and returns the model's answer, once every function call
// it requested has been answered.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	s.lastUsed = time.Now()
	s.turns = append(s.turns, Turn{Role: "user", Text: text, Time: s.lastUsed})

	resp, err := s.chat.Send(ctx, &genai.Part{Text: text})
	for round := 0; err == nil; round++ {
		calls := resp.FunctionCalls()
		if len(calls) == 0 {
			break
		}
		if round == maxToolRounds {
			return "", fmt.Errorf("model kept calling functions after %d rounds", maxToolRounds)
		}
		parts := make([]*genai.Part, 0, len(calls))
		for _, call := range calls {
			parts = append(parts, &genai.Part{FunctionResponse: s.library(ctx, call)})
		}
		resp, err = s.chat.Send(ctx, parts...)
	}
	if err != nil {
		return "", fmt.Errorf("could not send message: %w", wrap(err))
	}

	answer := resp.Text()
	if answer == "" {
		return "", ErrEmptyResponse
	}
	s.lastUsed = time.Now()
	s.turns = append(s.turns, Turn{Role: "model", Text: answer, Time: s.lastUsed})
	return answer, nil
}

// Transcript returns a copy of the turns so far.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.turns...)
}

// LastUsed returns the time of the last activity.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Close disposes the session. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.chat = nil
	return nil
}
