// Package web serves the tracker pages. Every page is rendered from the gateway's
// collections, and forms post back to the page they came from.
package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/whole2swole/internal/auth"
	"github.com/2beens/whole2swole/internal/forms"
	"github.com/2beens/whole2swole/internal/gateway"
	"github.com/2beens/whole2swole/internal/gymlog"
	"github.com/2beens/whole2swole/internal/middleware"
	"github.com/2beens/whole2swole/internal/telemetry/metrics"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"
	"github.com/2beens/whole2swole/internal/views"
	"github.com/2beens/whole2swole/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	actionSave        = "save"
	actionAddExercise = "add-exercise"
	actionCancelEdit  = "cancel-edit"
	fieldRemove       = "remove"
	fieldAction       = "action"
	fieldReturnTo     = "return_to"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=web_test

// SessionIssuer hands out and revokes browser session tokens.
type SessionIssuer interface {
	Login(ctx context.Context, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type Handler struct {
	gateway           *gateway.Gateway
	gate              *auth.SoloGate
	sessions          SessionIssuer
	workoutSubmitter  *forms.WorkoutSubmitter
	bodyStatSubmitter *forms.BodyStatSubmitter
	pages             pages

	sessionTTL    time.Duration
	secureCookies bool
	now           func() time.Time
}

type NewHandlerParams struct {
	Gateway        *gateway.Gateway
	Gate           *auth.SoloGate
	Sessions       SessionIssuer
	MetricsManager *metrics.Manager
	SessionTTL     time.Duration
	SecureCookies  bool
}

func NewHandler(params NewHandlerParams) (*Handler, error) {
	p, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Handler{
		gateway:           params.Gateway,
		gate:              params.Gate,
		sessions:          params.Sessions,
		workoutSubmitter:  forms.NewWorkoutSubmitter(params.Gateway, params.MetricsManager),
		bodyStatSubmitter: forms.NewBodyStatSubmitter(params.Gateway, params.MetricsManager),
		pages:             p,
		sessionTTL:        params.SessionTTL,
		secureCookies:     params.SecureCookies,
		now:               time.Now,
	}, nil
}

// SetupRoutes registers the pages. loginRateLimit wraps only the sign-in route.
func (h *Handler) SetupRoutes(r *mux.Router, loginRateLimit mux.MiddlewareFunc) {
	r.HandleFunc("/healthz", h.HandleHealth).Methods("GET").Name("healthz")
	r.PathPrefix("/static/").Handler(staticHandler()).Methods("GET").Name("static")

	var login http.Handler = http.HandlerFunc(h.HandleLogin)
	if loginRateLimit != nil {
		login = loginRateLimit(login)
	}
	r.HandleFunc(middleware.LoginPath, h.HandleLoginPage).Methods("GET").Name("login-page")
	r.Handle(middleware.LoginPath, login).Methods("POST").Name("login")

	r.HandleFunc("/logout", h.HandleLogout).Methods("POST").Name("logout")
	r.HandleFunc("/refresh", h.HandleRefresh).Methods("POST").Name("refresh")

	r.HandleFunc("/", h.HandleDashboard).Methods("GET").Name("dashboard")
	r.HandleFunc("/log", h.HandleWorkoutPage).Methods("GET").Name("log-page")
	r.HandleFunc("/log", h.HandleWorkoutSubmit).Methods("POST").Name("log-submit")
	r.HandleFunc("/history", h.HandleHistory).Methods("GET").Name("history")
	r.HandleFunc("/history/{id}/edit", h.HandleEditWorkout).Methods("POST").Name("history-edit")
	r.HandleFunc("/stats", h.HandleBodyStatsPage).Methods("GET").Name("stats-page")
	r.HandleFunc("/stats", h.HandleBodyStatSubmit).Methods("POST").Name("stats-submit")
	r.HandleFunc("/stats/{id}/edit", h.HandleEditBodyStat).Methods("POST").Name("stats-edit")
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "ok")
}

func (h *Handler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.gateway.Authenticated() && h.hasSessionCookie(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, "", http.StatusOK)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "web.login")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		log.Errorf("login failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	// the gate sees the PIN as typed, a malformed one never reaches the store
	pin := strings.TrimSpace(r.PostForm.Get(forms.FieldPIN))
	if err := h.gate.SignIn(ctx, pin); err != nil {
		status := http.StatusUnauthorized
		if forms.IsValidationError(err) {
			status = http.StatusBadRequest
		}
		span.RecordError(err)
		h.renderLogin(w, err.Error(), status)
		return
	}

	token, err := h.sessions.Login(ctx, h.now())
	if err != nil {
		log.Errorf("login: issue session token: %s", err)
		h.renderLogin(w, "Signed in, but the browser session could not be created. Try again.", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, int(h.sessionTTL.Seconds())))
	log.Infof("solo user %s signed in", h.gate.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if _, err := h.sessions.Logout(ctx, cookie.Value); err != nil {
			log.Errorf("logout: revoke session token: %s", err)
		}
	}

	if err := h.gateway.SignOut(ctx); err != nil {
		log.Warnf("logout: store sign out: %s", err)
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.Refresh(r.Context()); err != nil {
		log.Warnf("manual refresh: %s", err)
	}

	returnTo := "/"
	if err := r.ParseForm(); err == nil {
		switch target := r.PostForm.Get(fieldReturnTo); target {
		case "/log", "/history", "/stats":
			returnTo = target
		}
	}
	http.Redirect(w, r, returnTo, http.StatusSeeOther)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(pageDashboard, "Dashboard", r)
	data.Dashboard = h.dashboard()
	h.pages.render(w, pageDashboard, data, http.StatusOK)
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(pageHistory, "History", r)
	data.History = h.history()
	h.pages.render(w, pageHistory, data, http.StatusOK)
}

func (h *Handler) HandleWorkoutPage(w http.ResponseWriter, r *http.Request) {
	form := forms.NewWorkoutForm(h.today())
	if editing := h.gateway.EditingWorkout(); editing != nil {
		form = forms.WorkoutFormFrom(*editing)
	}
	h.renderWorkout(w, r, form, forms.Result{}, http.StatusOK)
}

func (h *Handler) HandleWorkoutSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("workout submit, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	form := forms.WorkoutFormFromValues(r.PostForm, h.gateway.EditingWorkout())

	if raw := r.PostForm.Get(fieldRemove); raw != "" {
		if i, err := strconv.Atoi(raw); err == nil {
			form.RemoveExercise(i)
		}
		h.renderWorkout(w, r, form, forms.Result{}, http.StatusOK)
		return
	}

	switch action := r.PostForm.Get(fieldAction); action {
	case actionAddExercise:
		form.AddExercise()
		h.renderWorkout(w, r, form, forms.Result{}, http.StatusOK)
	case actionCancelEdit:
		h.gateway.CancelEditWorkout()
		http.Redirect(w, r, "/log", http.StatusSeeOther)
	case actionSave, "":
		result := h.workoutSubmitter.Submit(r.Context(), form, h.gateway.EditingWorkout())
		h.renderWorkout(w, r, form, result, resultStatusCode(result))
	default:
		http.Error(w, "unknown action: "+action, http.StatusBadRequest)
	}
}

func (h *Handler) HandleEditWorkout(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.gateway.StartEditWorkout(id); !ok {
		log.Warnf("edit workout: %s not found", id)
		http.Redirect(w, r, "/history", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/log", http.StatusSeeOther)
}

func (h *Handler) HandleBodyStatsPage(w http.ResponseWriter, r *http.Request) {
	form := forms.NewBodyStatForm(h.today())
	if editing := h.gateway.EditingBodyStat(); editing != nil {
		form = forms.BodyStatFormFrom(*editing)
	}
	h.renderBodyStats(w, r, form, forms.Result{}, http.StatusOK)
}

func (h *Handler) HandleBodyStatSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("body stat submit, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusBadRequest)
		return
	}

	form := forms.BodyStatFormFromValues(r.PostForm)

	switch action := r.PostForm.Get(fieldAction); action {
	case actionCancelEdit:
		h.gateway.CancelEditBodyStat()
		http.Redirect(w, r, "/stats", http.StatusSeeOther)
	case actionSave, "":
		result := h.bodyStatSubmitter.Submit(r.Context(), form, h.gateway.EditingBodyStat())
		h.renderBodyStats(w, r, form, result, resultStatusCode(result))
	default:
		http.Error(w, "unknown action: "+action, http.StatusBadRequest)
	}
}

func (h *Handler) HandleEditBodyStat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := h.gateway.StartEditBodyStat(id); !ok {
		log.Warnf("edit body stat: %s not found", id)
	}
	http.Redirect(w, r, "/stats", http.StatusSeeOther)
}

// renderLogin never echoes the posted PIN back into the page.
func (h *Handler) renderLogin(w http.ResponseWriter, message string, statusCode int) {
	h.pages.render(w, pageLogin, pageData{
		Title: "Sign in",
		Path:  middleware.LoginPath,
		Login: loginView{
			Username: h.gate.Username,
			Message:  message,
		},
	}, statusCode)
}

func (h *Handler) renderWorkout(w http.ResponseWriter, r *http.Request, form *forms.WorkoutForm, result forms.Result, statusCode int) {
	data := h.pageData(pageLog, "Log Workout", r)
	data.Workout = form
	data.Editing = h.gateway.EditingWorkout() != nil
	data.Busy = h.workoutSubmitter.Busy()
	data.Result = result
	if data.Editing {
		data.Title = "Edit Workout"
	}
	h.pages.render(w, pageLog, data, statusCode)
}

func (h *Handler) renderBodyStats(w http.ResponseWriter, r *http.Request, form *forms.BodyStatForm, result forms.Result, statusCode int) {
	data := h.pageData(pageStats, "Body Stats", r)
	data.BodyStat = form
	data.Editing = h.gateway.EditingBodyStat() != nil
	data.Busy = h.bodyStatSubmitter.Busy()
	data.Result = result
	data.Entries = h.bodyStatEntries()
	h.pages.render(w, pageStats, data, statusCode)
}

func (h *Handler) pageData(page, title string, r *http.Request) pageData {
	return pageData{
		Title:    title,
		Path:     r.URL.Path,
		SignedIn: true,
		Error:    h.gateway.Err(),
		Tabs:     tabs(page, h.gateway.EditingWorkout() != nil),
	}
}

func (h *Handler) hasSessionCookie(r *http.Request) bool {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	return err == nil && cookie.Value != ""
}

func (h *Handler) sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *Handler) today() gymlog.Date {
	return gymlog.DateOf(h.now())
}

func resultStatusCode(result forms.Result) int {
	switch result.Status {
	case forms.StatusRejected:
		return http.StatusBadRequest
	case forms.StatusBusy:
		return http.StatusConflict
	case forms.StatusFailed:
		return http.StatusBadGateway
	default:
		return http.StatusOK
	}
}

func (h *Handler) dashboard() views.Dashboard {
	return views.NewDashboard(h.gateway.Workouts(), h.gateway.BodyStats())
}

func (h *Handler) history() []views.HistoryRow {
	return views.NewHistory(h.gateway.Workouts())
}

func (h *Handler) bodyStatEntries() []views.BodyStatEntry {
	return views.NewBodyStatEntries(h.gateway.BodyStats())
}
