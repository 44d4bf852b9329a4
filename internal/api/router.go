package api

import (
	"database/sql"
	"net/http"

	"github.com/justinas/alice"
	"github.com/rs/cors"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/uploads"
)

// NewRouter creates the API router with all endpoints registered. An empty
// origins list allows any origin; the API authenticates with bearer tokens,
// never cookies.
func NewRouter(db *sql.DB, jwtSecret string, images *uploads.Dir, origins []string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Images: images}
	claimsHandler := &ClaimsHandler{DB: db}

	authed := alice.New(AuthMiddleware(jwtSecret, db))
	admin := authed.Append(RequireRole(model.RoleAdmin))

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/signup", authHandler.Signup)

	mux.Handle("POST /api/auth/logout", authed.ThenFunc(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed.ThenFunc(authHandler.ChangePassword))

	// Items: any signed-in user may browse, report and claim.
	mux.Handle("GET /api/items", authed.ThenFunc(itemsHandler.List))
	mux.Handle("POST /api/items", authed.ThenFunc(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed.ThenFunc(itemsHandler.Get))
	mux.Handle("DELETE /api/items/{id}", authed.ThenFunc(itemsHandler.Delete))
	mux.Handle("GET /api/items/{id}/matches", authed.ThenFunc(itemsHandler.Matches))
	mux.Handle("GET /api/items/{id}/image", authed.ThenFunc(itemsHandler.GetImage))
	mux.Handle("PUT /api/items/{id}/image", authed.ThenFunc(itemsHandler.UploadImage))
	mux.Handle("POST /api/items/{id}/claims", authed.ThenFunc(claimsHandler.Create))

	// Moderation (admin only).
	mux.Handle("PUT /api/items/{id}", admin.ThenFunc(itemsHandler.Update))
	mux.Handle("PUT /api/items/{id}/status", admin.ThenFunc(itemsHandler.SetStatus))
	mux.Handle("GET /api/claims", admin.ThenFunc(claimsHandler.List))
	mux.Handle("PUT /api/claims/{id}/status", admin.ThenFunc(claimsHandler.SetStatus))
	mux.Handle("GET /api/users", admin.ThenFunc(usersHandler.List))
	mux.Handle("DELETE /api/users/{id}", admin.ThenFunc(usersHandler.Delete))

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(mux)
}
