package server

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/session"
	"github.com/claude/liftlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Store is the history storage the handlers read and write.
// *storage.DB satisfies it.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int, typeFilter string) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	DeleteWorkout(ctx context.Context, workoutID uuid.UUID, userID int) error
	QueryWorkoutSets(ctx context.Context, start, end time.Time, userID int, exerciseFilter string) ([]models.WorkoutSetRow, error)
	CreateTemplate(ctx context.Context, t *models.Template) error
	ListTemplates(ctx context.Context, userID int) ([]models.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID, userID int) (*models.Template, error)
	UpdateTemplate(ctx context.Context, t *models.Template) error
	DeleteTemplate(ctx context.Context, id uuid.UUID, userID int) error
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
	GetPersonalRecords(ctx context.Context, userID int, exerciseFilter string) ([]storage.PersonalRecord, error)
}

var _ Store = (*storage.DB)(nil)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      Store
	tracker *session.Tracker
	log     *slog.Logger
	apiKey  string
	whois   WhoIsClient
	router  chi.Router
}

// New creates a new Server with all routes configured.
func New(db Store, tracker *session.Tracker, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:      db,
		tracker: tracker,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity from the API key and dev user to Tailscale
// WhoIs lookups. Call before serving.
func (s *Server) SetTailscale(whois WhoIsClient) {
	s.whois = whois
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/me", s.handleMe)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/", s.handleStartSession)
			r.Delete("/", s.handleDiscardSession)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/rest", s.handleStartRest)
			r.Delete("/rest", s.handleClearRest)
			r.Post("/finish", s.handleFinish)

			r.Post("/exercises", s.handleAddExercise)
			r.Delete("/exercises/{ex}", s.handleRemoveExercise)
			r.Post("/exercises/{ex}/sets", s.handleAddSet)
			r.Put("/exercises/{ex}/sets/{set}", s.handleUpdateSet)
			r.Delete("/exercises/{ex}/sets/{set}", s.handleRemoveSet)
			r.Post("/exercises/{ex}/sets/{set}/complete", s.handleCompleteSet)
		})

		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Delete("/workouts/{id}", s.handleDeleteWorkout)
		r.Get("/sets", s.handleQuerySets)

		r.Get("/templates", s.handleListTemplates)
		r.Post("/templates", s.handleCreateTemplate)
		r.Get("/templates/{id}", s.handleGetTemplate)
		r.Put("/templates/{id}", s.handleUpdateTemplate)
		r.Delete("/templates/{id}", s.handleDeleteTemplate)

		r.Get("/training/summary", s.handleTrainingSummary)
		r.Get("/training/records", s.handlePersonalRecords)
	})
}

// SetMCP mounts an MCP handler at /mcp behind the same identity middleware as
// the API.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.identity).Handle("/mcp", h)
}

// SetFrontend mounts the SPA filesystem.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		f, err := webFS.Open(r.URL.Path[1:])
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}

// identity resolves the caller. On the tailnet WhoIs decides; otherwise the
// API key is required and requests run as the dev user.
func (s *Server) identity(next http.Handler) http.Handler {
	local := APIKeyAuth(s.apiKey)(DevIdentity(next))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois != nil {
			TailscaleIdentity(s.whois, s.db, s.log)(next).ServeHTTP(w, r)
			return
		}
		local.ServeHTTP(w, r)
	})
}
