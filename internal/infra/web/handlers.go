package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"daily365_bot/internal/app"
	"daily365_bot/internal/domain/content"
	"daily365_bot/internal/domain/subscriber"

	"github.com/go-chi/chi/v5"
)

type loginView struct {
	Error string
}

type dashboardView struct {
	Flash  string
	Error  string
	Slots  []*content.Slot
	Stats  app.SubscriberStats
	Filled int
}

type slotView struct {
	Day       int
	Body      string
	SendTime  string
	MaxLength int
	Error     string
}

type welcomeView struct {
	Body      string
	MaxLength int
	Error     string
}

type previewResponse struct {
	Preview   string `json:"preview"`
	Length    int    `json:"length"`
	MaxLength int    `json:"max_length"`
	TooLong   bool   `json:"too_long"`
}

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil && s.sessions.Touch(cookie.Value) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginView{})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if !s.checkPassword(r.PostFormValue("password")) {
		s.logger.WithField("remote_addr", r.RemoteAddr).Warn("Failed console login")
		s.render(w, http.StatusUnauthorized, "login.html", loginView{Error: "Invalid password"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.sessions.Create(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
	s.logger.WithField("remote_addr", r.RemoteAddr).Info("Console login")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Delete(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slots, err := s.adminService.Slots(ctx)
	if err != nil {
		s.serverError(w, err)
		return
	}
	stats, err := s.adminService.Stats(ctx)
	if err != nil {
		s.serverError(w, err)
		return
	}

	view := dashboardView{
		Flash: r.URL.Query().Get("flash"),
		Error: r.URL.Query().Get("error"),
		Slots: slots,
		Stats: stats,
	}
	for _, slot := range slots {
		if !slot.IsEmpty() {
			view.Filled++
		}
	}
	s.render(w, http.StatusOK, "dashboard.html", view)
}

func (s *Server) editSlotPage(w http.ResponseWriter, r *http.Request) {
	day, ok := s.dayParam(w, r)
	if !ok {
		return
	}
	slot, err := s.adminService.Slot(r.Context(), day)
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, http.StatusOK, "slot.html", slotView{
		Day:       day,
		Body:      slot.Body,
		SendTime:  slot.SendTime.String(),
		MaxLength: content.MaxMessageLength,
	})
}

func (s *Server) saveSlot(w http.ResponseWriter, r *http.Request) {
	day, ok := s.dayParam(w, r)
	if !ok {
		return
	}
	body := normalizeNewlines(r.PostFormValue("content"))
	sendTime := r.PostFormValue("send_time")

	_, err := s.adminService.SaveSlot(r.Context(), day, body, sendTime)
	if app.IsValidationError(err) {
		s.render(w, http.StatusBadRequest, "slot.html", slotView{
			Day:       day,
			Body:      body,
			SendTime:  sendTime,
			MaxLength: content.MaxMessageLength,
			Error:     validationMessage(err),
		})
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}

	s.logger.WithField("slot", day).Info("Slot updated via web console")
	redirectWith(w, r, "flash", "Day "+strconv.Itoa(day)+" saved")
}

func (s *Server) previewSlot(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.dayParam(w, r); !ok {
		return
	}
	text := normalizeNewlines(r.URL.Query().Get("content"))
	length := utf8.RuneCountInString(text)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(previewResponse{
		Preview:   text,
		Length:    length,
		MaxLength: content.MaxMessageLength,
		TooLong:   length > content.MaxMessageLength,
	})
}

func (s *Server) editWelcomePage(w http.ResponseWriter, r *http.Request) {
	text, err := s.adminService.Welcome(r.Context())
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.render(w, http.StatusOK, "welcome.html", welcomeView{Body: text, MaxLength: content.MaxMessageLength})
}

func (s *Server) saveWelcome(w http.ResponseWriter, r *http.Request) {
	body := normalizeNewlines(r.PostFormValue("content"))
	err := s.adminService.SetWelcome(r.Context(), body)
	if app.IsValidationError(err) {
		s.render(w, http.StatusBadRequest, "welcome.html", welcomeView{
			Body:      body,
			MaxLength: content.MaxMessageLength,
			Error:     validationMessage(err),
		})
		return
	}
	if err != nil {
		s.serverError(w, err)
		return
	}
	s.logger.Info("Welcome message updated via web console")
	redirectWith(w, r, "flash", "Welcome message saved")
}

// dayParam parses {day}; invalid values send the user back to the dashboard.
func (s *Server) dayParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil || day < 1 || day > subscriber.TotalSlots {
		redirectWith(w, r, "error", "Invalid day number")
		return 0, false
	}
	return day, true
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.WithError(err).Error("Console request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func redirectWith(w http.ResponseWriter, r *http.Request, key, msg string) {
	http.Redirect(w, r, "/?"+url.Values{key: {msg}}.Encode(), http.StatusSeeOther)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrMessageTooLong):
		return "Message too long. Maximum " + strconv.Itoa(content.MaxMessageLength) + " characters."
	case errors.Is(err, app.ErrInvalidSendTime):
		return "Invalid time format. Use HH:MM."
	case errors.Is(err, app.ErrInvalidSlotNumber):
		return "Invalid day number."
	case errors.Is(err, app.ErrEmptyMessage):
		return "Message cannot be empty."
	}
	return err.Error()
}

// Browsers submit textarea line breaks as CRLF.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
