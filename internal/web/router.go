package web

import (
	"database/sql"
	"net/http"

	"github.com/justinas/alice"

	"github.com/erazemk/najdeno/internal/uploads"
	webembed "github.com/erazemk/najdeno/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, jwtSecret string, images *uploads.Dir) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
		Images:    images,
	}

	mux := http.NewServeMux()
	authed := alice.New(CookieAuthMiddleware(jwtSecret, db))
	admin := authed.Append(RequireAdmin)

	// Static assets and stored images.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))
	mux.HandleFunc("GET /uploads/{name}", s.UploadGet)

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /signup", s.SignupPage)
	mux.HandleFunc("POST /signup", s.SignupSubmit)
	mux.HandleFunc("POST /logout", s.Logout)
	mux.HandleFunc("GET /custom_404", s.Custom404)

	// Authenticated routes.
	mux.Handle("GET /{$}", authed.ThenFunc(s.Dashboard))
	mux.Handle("GET /lost", authed.ThenFunc(s.LostPage))
	mux.Handle("GET /found", authed.ThenFunc(s.FoundPage))
	mux.Handle("GET /report/{kind}", authed.ThenFunc(s.ReportPage))
	mux.Handle("POST /report/{kind}", authed.ThenFunc(s.ReportSubmit))
	mux.Handle("GET /items/{id}", authed.ThenFunc(s.ItemDetailPage))
	mux.Handle("GET /items/{id}/matches", authed.ThenFunc(s.ItemMatchesPage))
	mux.Handle("GET /items/{id}/claim", authed.ThenFunc(s.ClaimPage))
	mux.Handle("POST /items/{id}/claim", authed.ThenFunc(s.ClaimSubmit))
	mux.Handle("POST /items/{id}/delete", authed.ThenFunc(s.ItemDeleteSubmit))

	// Admin routes.
	mux.Handle("GET /admin", admin.ThenFunc(s.AdminPage))
	mux.Handle("POST /admin/items/{id}/status", admin.ThenFunc(s.AdminItemStatusSubmit))
	mux.Handle("GET /admin/items/{id}/edit", admin.ThenFunc(s.AdminItemEditPage))
	mux.Handle("POST /admin/items/{id}/edit", admin.ThenFunc(s.AdminItemEditSubmit))
	mux.Handle("POST /admin/items/{id}/delete", admin.ThenFunc(s.AdminItemDeleteSubmit))
	mux.Handle("POST /admin/claims/{id}/status", admin.ThenFunc(s.AdminClaimStatusSubmit))

	// Everything else.
	mux.HandleFunc("/", s.NotFound)

	return mux, nil
}
