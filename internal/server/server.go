package server

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"qgate/internal/core"
	"qgate/internal/history"
	"qgate/pkg/utils"
)

// Server exposes the configured pipelines over HTTP: list them, trigger a
// run, fetch a stored result, verify the journal. Runs are serialized since
// the runner contract is one child process at a time.
type Server struct {
	cfg     *core.Config
	log     *logrus.Logger
	journal *history.Journal
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey

	exec core.Executor

	runMu sync.Mutex // one pipeline run at a time

	mu   sync.Mutex
	runs map[string]*core.PipelineResult
}

var errNoJournal = errors.New("no journal configured")

func errNotFound(id string) error {
	return errors.Errorf("unknown run %q", id)
}

type Option func(*Server)

// WithJournal makes the server append a signed record after every run.
func WithJournal(j *history.Journal, priv ed25519.PrivateKey, pub ed25519.PublicKey) Option {
	return func(s *Server) {
		s.journal = j
		s.priv = priv
		s.pub = pub
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithExecutor substitutes the process executor, mainly for tests.
func WithExecutor(exec core.Executor) Option {
	return func(s *Server) { s.exec = exec }
}

func New(cfg *core.Config, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		log: logrus.New(),
		// capture only; a server has no terminal to stream to
		exec: &core.ProcessExecutor{},
		runs: make(map[string]*core.PipelineResult),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the chi router for the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/pipelines", s.handleListPipelines)
	r.Post("/pipelines/{name}/runs", s.handleStartRun)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/journal/verify", s.handleVerifyJournal)
	return r
}

// GET /pipelines
func (s *Server) handleListPipelines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"pipelines": s.cfg.Names()})
}

// POST /pipelines/{name}/runs, executes synchronously and returns the result.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	pipeline, err := s.cfg.Lookup(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	runner := &core.Runner{Executor: s.exec}
	res, err := runner.Run(r.Context(), pipeline)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.runs[id] = res
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"run":      id,
		"pipeline": name,
		"status":   res.Status,
	}).Info("pipeline run finished")

	if s.journal != nil {
		if err := s.appendRecord(res); err != nil {
			s.log.WithError(err).Warn("cannot append journal record")
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "result": res})
}

// GET /runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	res, ok := s.runs[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound(id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /journal/verify
func (s *Server) handleVerifyJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusNotFound, errNoJournal)
		return
	}
	if err := s.journal.Verify(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"journal": "ok"})
}

func (s *Server) appendRecord(res *core.PipelineResult) error {
	var outputs string
	for _, step := range res.Steps {
		outputs += step.Output
	}
	rec, err := history.NewRecord(s.journal.NextSeq(), res, utils.HashString(outputs), s.journal.LastDigest())
	if err != nil {
		return err
	}
	return s.journal.Append(rec, s.priv, s.pub)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
