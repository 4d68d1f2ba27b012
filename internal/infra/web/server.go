package web

import (
	"crypto/subtle"
	"embed"
	"html/template"
	"net/http"
	"time"

	"daily365_bot/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionCookie = "daily365_session"

// Server is the content-editing console.
type Server struct {
	adminService *app.AdminService
	sessions     *SessionStore
	password     string
	templates    *template.Template
	logger       *logrus.Entry
	router       chi.Router
}

func NewServer(adminService *app.AdminService, password string, sessionTimeout time.Duration, logger *logrus.Entry) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"excerpt": excerpt,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		adminService: adminService,
		sessions:     NewSessionStore(sessionTimeout),
		password:     password,
		templates:    tmpl,
		logger:       logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/login", s.loginPage)
	r.Post("/login", s.login)
	r.Get("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.dashboard)
		r.Get("/slots/{day}", s.editSlotPage)
		r.Post("/slots/{day}", s.saveSlot)
		r.Get("/slots/{day}/preview", s.previewSlot)
		r.Get("/welcome", s.editWelcomePage)
		r.Post("/welcome", s.saveWelcome)
	})
	return r
}

func (s *Server) checkPassword(password string) bool {
	if s.password == "" || password == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || !s.sessions.Touch(cookie.Value) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Error("HTTP request failed")
		} else {
			entry.Debug("HTTP request")
		}
	})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.WithError(err).WithField("template", name).Error("Failed to render template")
	}
}
