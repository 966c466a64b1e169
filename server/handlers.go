package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/etnz/fsa"
	"github.com/etnz/fsa/agent"
	"github.com/etnz/fsa/renderer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type sessionKey struct{}

// SessionResponse is a session as returned by the API.
type SessionResponse struct {
	ID     string      `json:"id"`
	Report *fsa.Report `json:"report"`
	Cached bool        `json:"cached,omitempty"`
}

// MessageRequest is a chat message from the user.
type MessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is the answer of the model.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// CommentaryResponse is the commentary of the model.
type CommentaryResponse struct {
	Commentary string `json:"commentary"`
}

// createSession reads the uploaded workbook and analyzes it.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = newError(http.StatusBadRequest, "bad_request", fmt.Errorf("invalid multipart form: %w", err))
		}
		s.fail(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, newError(http.StatusBadRequest, "bad_request", fmt.Errorf("missing workbook in field %q: %w", "file", err)))
		return
	}
	defer file.Close()

	stmt, err := fsa.ReadWorkbook(file, fsa.ReadOptions{
		Sheet:  r.FormValue("sheet"),
		Source: header.Filename,
	})
	if err != nil {
		if !errors.Is(err, fsa.ErrBadLayout) {
			err = newError(http.StatusBadRequest, "invalid_workbook", err)
		}
		s.fail(w, r, err)
		return
	}

	report, hit, err := s.memo.Analyze(s.analyzer, stmt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.reports.WithLabelValues(map[bool]string{true: "hit", false: "miss"}[hit]).Inc()

	e := s.sessions.add(report)
	s.logger.Info("session created", "session", e.ID, "source", header.Filename, "sheet", stmt.Sheet, "rows", len(report.Rows), "cached", hit)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, SessionResponse{ID: e.ID, Report: report, Cached: hit})
}

// loadSession puts the session of the {id} URL parameter in the request context.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		e, ok := s.sessions.get(id)
		if !ok {
			s.fail(w, r, newError(http.StatusNotFound, "not_found", fmt.Errorf("no session %q", id)))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, e)))
	})
}

func sessionFrom(r *http.Request) *session { return r.Context().Value(sessionKey{}).(*session) }

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	render.JSON(w, r, SessionResponse{ID: e.ID, Report: e.Report})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	s.sessions.delete(e.ID)
	s.logger.Info("session deleted", "session", e.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getMarkdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, renderer.ReportMarkdown(sessionFrom(r).Report))
}

// getHTML renders the report with the last commentary, if any.
func (s *Server) getHTML(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	e.mu.Lock()
	commentary := e.commentary
	e.mu.Unlock()
	page, err := renderer.HTML(e.Report.Title(), renderer.ReportMarkdown(e.Report), commentary)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.HTML(w, r, page)
}

func (s *Server) postCommentary(w http.ResponseWriter, r *http.Request) {
	if s.commentator == nil {
		s.fail(w, r, agent.ErrNoAPIKey)
		return
	}
	e := sessionFrom(r)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		s.fail(w, r, agent.ErrSessionClosed)
		return
	}

	text, err := s.commentator.Comment(r.Context(), e.Report)
	s.metrics.ai.WithLabelValues("commentary", outcome(err)).Inc()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	e.commentary = text
	render.JSON(w, r, CommentaryResponse{Commentary: text})
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	e := sessionFrom(r)
	e.mu.Lock()
	defer e.mu.Unlock()
	turns := []agent.Turn{}
	if e.chat != nil {
		turns = e.chat.Transcript()
	}
	render.JSON(w, r, turns)
}

// postMessage sends the message to the session chat, opened on first use.
func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.fail(w, r, newError(http.StatusBadRequest, "bad_request", fmt.Errorf("invalid message: %w", err)))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.fail(w, r, newError(http.StatusBadRequest, "bad_request", errors.New("empty message")))
		return
	}
	if s.chats == nil {
		s.fail(w, r, agent.ErrNoAPIKey)
		return
	}

	e := sessionFrom(r)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		s.fail(w, r, agent.ErrSessionClosed)
		return
	}
	if e.chat == nil {
		chat, err := agent.NewSession(r.Context(), s.chats, s.options, e.Report)
		if err != nil {
			s.metrics.ai.WithLabelValues("chat", outcome(err)).Inc()
			s.fail(w, r, err)
			return
		}
		e.chat = chat
	}

	reply, err := e.chat.Send(r.Context(), req.Message)
	s.metrics.ai.WithLabelValues("chat", outcome(err)).Inc()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, MessageResponse{Reply: reply})
}
