package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/auth"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/uploads"
	webembed "github.com/erazemk/najdeno/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"categories":  func() []string { return model.Categories },
		"statusName": func(status string) string {
			switch status {
			case model.ItemStatusUnclaimed:
				return "Unclaimed"
			case model.ItemStatusClaimed:
				return "Claimed"
			case model.ClaimStatusPending:
				return "Pending"
			case model.ClaimStatusApproved:
				return "Approved"
			case model.ClaimStatusRejected:
				return "Rejected"
			default:
				return status
			}
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"canModify": func(user *auth.Claims, item model.Item) bool {
			return user != nil && item.ModifiableBy(user.UserID, user.Role)
		},
	}
}

// pages lists every page template. Each is parsed together with the layout.
var pages = []string{
	"login.html",
	"signup.html",
	"dashboard.html",
	"items.html",
	"report.html",
	"similar.html",
	"item_detail.html",
	"claim.html",
	"admin.html",
	"item_edit.html",
	"404.html",
	"404_milton.html",
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Errors  []string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
	Images    *uploads.Dir
}

// page builds the base page data, consuming any pending flash message.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	p := PageData{Title: title, User: GetWebClaims(r.Context())}
	switch kind, message := popFlash(w, r); kind {
	case flashError:
		p.Error = message
	case flashSuccess:
		p.Success = message
	}
	return p
}
