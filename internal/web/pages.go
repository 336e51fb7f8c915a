package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/2beens/whole2swole/internal/forms"
	"github.com/2beens/whole2swole/internal/views"
	"github.com/2beens/whole2swole/pkg"

	log "github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	pageLogin     = "login"
	pageDashboard = "dashboard"
	pageLog       = "log"
	pageHistory   = "history"
	pageStats     = "stats"
)

type tab struct {
	Path   string
	Label  string
	Active bool
}

type loginView struct {
	Username string
	Message  string
}

type pageData struct {
	Title    string
	Path     string
	SignedIn bool
	// the gateway's last store error
	Error string
	Tabs  []tab

	Login     loginView
	Dashboard views.Dashboard
	History   []views.HistoryRow
	Entries   []views.BodyStatEntry

	Workout  *forms.WorkoutForm
	BodyStat *forms.BodyStatForm
	Editing  bool
	Busy     bool
	Result   forms.Result
}

type pages map[string]*template.Template

func parsePages() (pages, error) {
	p := pages{}
	for _, name := range []string{pageLogin, pageDashboard, pageLog, pageHistory, pageStats} {
		t, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		p[name] = t
	}
	return p, nil
}

func (p pages) render(w http.ResponseWriter, name string, data pageData, statusCode int) {
	t, ok := p[name]
	if !ok {
		log.Errorf("render: unknown page %s", name)
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		log.Errorf("render page %s: %s", name, err)
		http.Error(w, "render page error", http.StatusInternalServerError)
		return
	}

	pkg.WriteHTMLResponse(w, buf.Bytes(), statusCode)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

func tabs(active string, editingWorkout bool) []tab {
	logLabel := "Log Workout"
	if editingWorkout {
		logLabel = "Edit Workout"
	}
	return []tab{
		{Path: "/", Label: "Dashboard", Active: active == pageDashboard},
		{Path: "/log", Label: logLabel, Active: active == pageLog},
		{Path: "/history", Label: "History", Active: active == pageHistory},
		{Path: "/stats", Label: "Body Stats", Active: active == pageStats},
	}
}
