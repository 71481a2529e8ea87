// Package devserver is a local implementation of the league API for
// development and integration tests. It serves the same .php endpoints as the
// production backend, stores everything in SQLite and ranks league search
// results with a Bleve index.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/trashtalkapp/trashtalk-client/internal/domain"
	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
	"github.com/trashtalkapp/trashtalk-client/internal/http/response"
	applog "github.com/trashtalkapp/trashtalk-client/internal/logger"
	"github.com/trashtalkapp/trashtalk-client/internal/proofimage"
	"github.com/trashtalkapp/trashtalk-client/internal/ratelimit"
	"github.com/trashtalkapp/trashtalk-client/internal/validation"
)

const (
	// DefaultPrefix mirrors the production mount point.
	DefaultPrefix = "/trashtalk"

	maxJSONBytes   = 1 << 20
	maxUploadBytes = proofimage.MaxBytes + 1<<20
)

// Options configures the dev server.
type Options struct {
	// DataPath is the SQLite file. Empty keeps everything in memory.
	DataPath string
	// Prefix is the path the endpoints are mounted under (default /trashtalk).
	Prefix string
	// RPS limits requests per client IP. Zero disables limiting.
	RPS    float64
	Burst  int
	Logger *slog.Logger
}

// Server is a running dev server: storage, search index and routes.
type Server struct {
	db        *DB
	index     *LeagueIndex
	svc       *LeagueService
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	router    *chi.Mux
	logger    *slog.Logger
}

// New opens storage, builds the search index and configures routes.
func New(ctx context.Context, opts Options) (*Server, error) {
	logger := applog.OrDiscard(opts.Logger).With(slog.String("component", "devserver"))
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	db, err := OpenDB(opts.DataPath, logger)
	if err != nil {
		return nil, err
	}
	index, err := NewLeagueIndex()
	if err != nil {
		db.Close()
		return nil, err
	}
	svc, err := NewLeagueService(ctx, db, index, logger)
	if err != nil {
		index.Close()
		db.Close()
		return nil, fmt.Errorf("load leagues: %w", err)
	}

	s := &Server{
		db:        db,
		index:     index,
		svc:       svc,
		validator: validation.New(),
		router:    chi.NewRouter(),
		logger:    logger,
	}
	if opts.RPS > 0 {
		s.limiter = ratelimit.New(opts.RPS, max(opts.Burst, 1))
	}

	s.setupMiddleware()
	s.setupRoutes(opts.Prefix)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the index and the database.
func (s *Server) Close() error {
	return errors.Join(s.index.Close(), s.db.Close())
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		s.router.Use(s.rateLimit)
	}
}

func (s *Server) setupRoutes(prefix string) {
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"}, s.logger)
	})

	s.router.Route(prefix, func(r chi.Router) {
		r.Post("/create_league.php", s.handleCreateLeague)
		r.Get("/search_leagues.php", s.handleSearchLeagues)
		r.Post("/join_league.php", s.handleJoinLeague)
		r.Post("/leave_league.php", s.handleLeaveLeague)
		r.Get("/list_league_members.php", s.handleListMembers)
		r.Get("/league_leaderboard.php", s.handleLeaderboard)

		r.Get("/list_chores.php", s.handleListChores)
		r.Post("/create_chore.php", s.handleCreateChore)
		r.Post("/edit_chore.php", s.handleEditChore)
		r.Post("/delete_chore.php", s.handleDeleteChore)

		r.Post("/complete_chore.php", s.handleCompleteChore)
		r.Get("/user_completed_chores.php", s.handleUserCompletions)
		r.Get("/view_proof_image.php", s.handleViewProofImage)
	})
}

// requestLogger logs each request at Debug with its status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// rateLimit refuses clients that exceed the per-IP budget with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(key); err == nil {
			key = host
		}
		if !s.limiter.Allow(key) {
			s.logger.Warn("Rate limit exceeded", "ip", key, "path", r.URL.Path)
			response.TooManyRequests(w, "Too many requests. Please try again later.", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// decode reads a JSON body into v and validates it. On failure it writes the
// response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, "invalid JSON body", s.logger)
		return false
	}
	if err := s.validator.Validate(v); err != nil {
		response.HandleError(w, err, s.logger)
		return false
	}
	return true
}

// check validates query-derived input. On failure it writes the response and
// returns false.
func (s *Server) check(w http.ResponseWriter, v any) bool {
	if err := s.validator.Validate(v); err != nil {
		response.HandleError(w, err, s.logger)
		return false
	}
	return true
}

func (s *Server) handleCreateLeague(w http.ResponseWriter, r *http.Request) {
	var req createLeagueBody
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.svc.CreateLeague(r.Context(), req.UserUID, strings.TrimSpace(req.Name), req.Description)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, map[string]string{"league_id": id}, s.logger)
}

func (s *Server) handleSearchLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := s.svc.SearchLeagues(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, leagues, s.logger)
}

func (s *Server) handleJoinLeague(w http.ResponseWriter, r *http.Request) {
	var req membershipBody
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.JoinLeague(r.Context(), req.UserUID, req.LeagueID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, nil, s.logger)
}

func (s *Server) handleLeaveLeague(w http.ResponseWriter, r *http.Request) {
	var req membershipBody
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.LeaveLeague(r.Context(), req.UserUID, req.LeagueID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, nil, s.logger)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	scope := leagueScopeFrom(r)
	if !s.check(w, scope) {
		return
	}
	members, err := s.svc.Leaderboard(r.Context(), scope.LeagueID, scope.UserUID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{"members": members}, s.logger)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	scope := leagueScopeFrom(r)
	if !s.check(w, scope) {
		return
	}
	board, err := s.svc.Leaderboard(r.Context(), scope.LeagueID, scope.UserUID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{"leaderboard": board}, s.logger)
}

func (s *Server) handleListChores(w http.ResponseWriter, r *http.Request) {
	scope := leagueScopeFrom(r)
	if !s.check(w, scope) {
		return
	}
	chores, err := s.svc.Chores(r.Context(), scope.LeagueID, scope.UserUID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, chores, s.logger)
}

func (s *Server) handleCreateChore(w http.ResponseWriter, r *http.Request) {
	var req createChoreBody
	if !s.decode(w, r, &req) {
		return
	}
	id, err := s.svc.CreateChore(r.Context(), req.UserUID, req.LeagueID, domain.Chore{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Points:      req.Points,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, map[string]string{"chore_id": id}, s.logger)
}

func (s *Server) handleEditChore(w http.ResponseWriter, r *http.Request) {
	var req editChoreBody
	if !s.decode(w, r, &req) {
		return
	}
	if req.IsEmpty() {
		response.BadRequest(w, "nothing to update", s.logger)
		return
	}
	if err := s.svc.EditChore(r.Context(), req.UserUID, req.ChoreID, req.ChorePatch); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, nil, s.logger)
}

func (s *Server) handleDeleteChore(w http.ResponseWriter, r *http.Request) {
	var req choreRefBody
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.svc.DeleteChore(r.Context(), req.UserUID, req.ChoreID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, nil, s.logger)
}

func (s *Server) handleCompleteChore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "invalid multipart body", s.logger)
		return
	}

	req := completeChoreForm{
		UserUID:  r.FormValue("user_uid"),
		LeagueID: r.FormValue("league_id"),
		ChoreID:  r.FormValue("chore_id"),
		Comments: r.FormValue("comments"),
	}
	if !s.check(w, req) {
		return
	}

	proof, err := s.readProof(r)
	if err != nil {
		response.BadRequest(w, err.Error(), s.logger)
		return
	}

	id, err := s.svc.CompleteChore(r.Context(), req.UserUID, req.LeagueID, req.ChoreID, req.Comments, proof)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Accepted(w, map[string]string{"completion_id": id}, s.logger)
}

// readProof returns the optional proof_image part. The stored content type
// is the one detected from the image bytes, never the client's header.
func (s *Server) readProof(r *http.Request) (*domain.Attachment, error) {
	file, header, err := r.FormFile("proof_image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid proof_image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, proofimage.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read proof_image: %w", err)
	}

	img, err := proofimage.Prepare(header.Filename, data)
	if err != nil {
		return nil, fmt.Errorf("proof_image: %s", clienterrors.Message(err))
	}
	s.logger.Debug("proof image received",
		"filename", img.Attachment.Filename,
		"format", img.Format,
		"width", img.Width,
		"height", img.Height,
		"blurhash", img.BlurHash,
	)
	return &img.Attachment, nil
}

func (s *Server) handleUserCompletions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := completionsQuery{
		LeagueID:  q.Get("league_id"),
		TargetUID: q.Get("target_uid"),
		UserUID:   q.Get("user_uid"),
	}
	if !s.check(w, scope) {
		return
	}
	completions, err := s.svc.Completions(r.Context(), scope.LeagueID, scope.TargetUID, scope.UserUID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]any{"completions": completions}, s.logger)
}

func (s *Server) handleViewProofImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := proofQuery{Filename: q.Get("f"), UserUID: q.Get("u"), Token: q.Get("t")}
	if !s.check(w, req) {
		return
	}
	proof, err := s.svc.ProofImage(r.Context(), req.Filename, req.UserUID, req.Token)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", proof.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(proof.Data); err != nil {
		s.logger.Warn("failed to write proof image", "error", err)
	}
}
