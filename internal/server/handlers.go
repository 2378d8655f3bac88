package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/starfederation/datastar-go/datastar"
)

// UnsetResponse is the body of DELETE /api/variables/{name}.
type UnsetResponse struct {
	Removed []string `json:"removed"`
}

// EvaluateRequest is the body of POST /api/evaluate.
type EvaluateRequest struct {
	Input string `json:"input"`
}

// LineResponse is one evaluated line.
type LineResponse struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Name   string `json:"name,omitempty"`
	Answer string `json:"answer"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// EvaluateResponse is the result of POST /api/evaluate.
type EvaluateResponse struct {
	Input  string         `json:"input"`
	Answer string         `json:"answer"`
	Trace  string         `json:"trace"`
	Error  string         `json:"error,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Lines  []LineResponse `json:"lines"`
}

// Variable is one binding of GET /api/variables.
type Variable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluate)
		r.Get("/events", s.handleEvents)
		r.Get("/variables", s.handleListVariables)
		r.Delete("/variables", s.handleResetVariables)
		r.Delete("/variables/{name}", s.handleUnsetVariable)
		r.Get("/history", s.handleHistory)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.clients.len(),
	})
}

// clientFor returns the client of the request's cookie session, starting a
// new session when there is none. It must run before the body is written.
func (s *Server) clientFor(w http.ResponseWriter, r *http.Request) (*client, error) {
	// A cookie that fails to decode yields a fresh session.
	sess, _ := s.sessionStore.Get(r, sessionName)

	id, _ := sess.Values[clientIDKey].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[clientIDKey] = id
		if err := sess.Save(r, w); err != nil {
			return nil, err
		}
		s.logger.Debug("new client", slog.String("client", id))
	}
	return s.clients.get(id)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// Plain JSON bodies and datastar signal payloads decode the same way.
	if err := datastar.ReadSignals(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	c, err := s.clientFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.mu.Lock()
	s.clients.touch(c)
	group, evalErr := c.env.EvaluateGroup(req.Input)
	c.sequence++
	seq := c.sequence
	resp := newEvaluateResponse(req.Input, group, evalErr)
	s.record(r, c, resp)
	c.mu.Unlock()

	s.notifier.Broadcast(Event{Client: c.id, Sequence: seq, Result: resp})

	// Evaluation errors are part of a successful response.
	writeJSON(w, http.StatusOK, resp)
}

// record stores resp in the history. c.mu must be held.
func (s *Server) record(r *http.Request, c *client, resp EvaluateResponse) {
	if s.store == nil {
		return
	}
	ctx := r.Context()
	if c.session == nil {
		sess, err := s.store.CreateSession(ctx, "serve")
		if err != nil {
			s.logger.Warn("failed to start history session", slog.Any("error", err))
			return
		}
		c.session = sess
	}
	err := s.store.RecordEvaluation(ctx, &state.Evaluation{
		SessionID: c.session.ID,
		Input:     resp.Input,
		Answer:    resp.Answer,
		Trace:     resp.Trace,
		Error:     resp.Error,
	})
	if err != nil {
		s.logger.Warn("failed to record history", slog.Any("error", err))
	}
}

func (s *Server) handleListVariables(w http.ResponseWriter, r *http.Request) {
	c, err := s.clientFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.mu.Lock()
	s.clients.touch(c)
	vars := variables(c.env)
	c.mu.Unlock()

	writeJSON(w, http.StatusOK, vars)
}

func (s *Server) handleResetVariables(w http.ResponseWriter, r *http.Request) {
	c, err := s.clientFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.mu.Lock()
	s.clients.touch(c)
	err = s.clients.reset(c)
	c.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnsetVariable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, err := s.clientFor(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	c.mu.Lock()
	s.clients.touch(c)
	var removed []string
	if _, found := c.env.Variable(name); found {
		// Configured variables derived from name go with it.
		for _, n := range s.graph.Cascade([]string{name}) {
			if _, ok := c.env.Variable(n); ok {
				c.env.Unset(n)
				removed = append(removed, n)
			}
		}
	}
	c.mu.Unlock()

	if len(removed) == 0 {
		writeError(w, http.StatusNotFound, "unknown variable "+strconv.Quote(name))
		return
	}
	writeJSON(w, http.StatusOK, UnsetResponse{Removed: removed})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is disabled")
		return
	}
	limit := state.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	evals, err := s.store.ListEvaluations(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evals == nil {
		evals = []*state.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

func newEvaluateResponse(input string, group formula.GroupResult, err error) EvaluateResponse {
	resp := EvaluateResponse{
		Input:  input,
		Answer: group.Answer,
		Trace:  group.Trace,
		Lines:  make([]LineResponse, 0, len(group.Lines)),
	}
	if err != nil {
		resp.Error, resp.Kind = errorFields(err)
	}
	for _, l := range group.Lines {
		lr := LineResponse{Line: l.Line, Text: l.Text, Name: l.Name, Answer: l.Answer}
		if l.Err != nil {
			lr.Error, lr.Kind = errorFields(l.Err)
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

func errorFields(err error) (string, string) {
	var fe *formula.Error
	if errors.As(err, &fe) {
		return err.Error(), fe.Kind.String()
	}
	return err.Error(), ""
}

func variables(env *formula.Environment) []Variable {
	names := env.Names()
	vars := make([]Variable, 0, len(names))
	for _, name := range names {
		tok, _ := env.Variable(name)
		kind := "number"
		switch tok.(type) {
		case formula.Vector:
			kind = "vector"
		case formula.Constant:
			kind = "constant"
		}
		vars = append(vars, Variable{
			Name:  name,
			Value: formula.FormatAnswer(tok, env.Digits(), env.Exact()),
			Kind:  kind,
		})
	}
	return vars
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
