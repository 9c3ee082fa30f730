package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/repcoach/internal/coach"
	repmcp "github.com/claude/repcoach/internal/mcp"
	"github.com/claude/repcoach/internal/models"
	"github.com/claude/repcoach/internal/storage"
	"github.com/claude/repcoach/internal/workout"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Store is the persistence the HTTP handlers need. *storage.DB satisfies it.
type Store interface {
	UserStore
	UpsertTemplate(ctx context.Context, name, description string, exercises []workout.Exercise) (uuid.UUID, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*models.TemplateRow, error)
	ListTemplates(ctx context.Context) ([]models.TemplateRow, error)
	ListAssignedTemplates(ctx context.Context, userID int) ([]models.TemplateRow, error)
	AssignTemplate(ctx context.Context, templateID uuid.UUID, userID int) (*models.AssignmentRow, error)
	InsertWorkoutLog(ctx context.Context, row models.WorkoutLogRow) (bool, error)
	QueryWorkoutLogs(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutLogRow, error)
	GetWorkoutLog(ctx context.Context, sessionID uuid.UUID, userID int) (*models.WorkoutLogRow, error)
	GetDataStats(ctx context.Context, userID int, now time.Time) (*storage.DataStats, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetExerciseProgress(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) (*storage.ExerciseProgress, error)
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

// Compile-time check: *storage.DB satisfies Store.
var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     Store
	coach  *coach.Manager
	log    *slog.Logger
	apiKey string
	router chi.Router

	whois WhoIser
	mcp   http.Handler
}

// New creates a new Server with all routes configured.
func New(db Store, mgr *coach.Manager, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		coach:  mgr,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches request identity from the local development user to
// the tailnet user making the request. Call before serving.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// SetMCP mounts an MCP server at /mcp over streamable HTTP, scoped to the
// requesting user.
func (s *Server) SetMCP(ms *mcpserver.MCPServer) {
	s.mcp = mcpserver.NewStreamableHTTPServer(ms,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return repmcp.WithUserID(ctx, userIDFromContext(r))
		}),
	)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Trainer endpoints (API key required)
	s.router.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Get("/workouts", s.handleListAllWorkouts)
		r.Post("/workouts", s.handleCreateWorkout)
		r.Post("/assignments", s.handleAssignWorkout)
		r.Get("/imports", s.handleListImports)
	})

	// Client endpoints (identity from tsnet, or the dev user)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/workouts", s.handleListWorkouts)
		r.Get("/api/v1/workouts/{id}", s.handleGetWorkout)

		r.Route("/api/v1/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleCancelSession)
				r.Post("/sets/{set}/toggle", s.handleToggleSet)
				r.Post("/weight", s.handleWeight)
				r.Post("/rest/skip", s.handleSkipRest)
				r.Post("/pause", s.handlePause)
				r.Post("/resume", s.handleResume)
				r.Post("/advance", s.handleAdvance)
				r.Post("/commit", s.handleCommit)
			})
		})

		r.Post("/api/v1/logs", s.handleSubmitLog)
		r.Get("/api/v1/logs", s.handleQueryLogs)
		r.Get("/api/v1/logs/{id}", s.handleGetLog)
		r.Get("/api/v1/stats", s.handleStats)
		r.Get("/api/v1/training-summary", s.handleTrainingSummary)
		r.Get("/api/v1/exercise-progress", s.handleExerciseProgress)

		r.Handle("/mcp", http.HandlerFunc(s.serveMCP))
	})
}

func (s *Server) serveMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mcp not enabled"})
		return
	}
	s.mcp.ServeHTTP(w, r)
}

// identify attributes the request to a user.
func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.db, s.log)(next).ServeHTTP(w, r)
	})
}
