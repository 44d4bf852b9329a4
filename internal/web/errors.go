package web

import (
	"net/http"
	"strconv"
)

const clicksCookie = "404_clicks"

// NotFound renders the 404 page.
func (s *Server) NotFound(w http.ResponseWriter, r *http.Request) {
	s.Templates.RenderStatus(w, http.StatusNotFound, "404.html", s.page(w, r, "404 Not Found"))
}

// Custom404 handles GET /custom_404. Every second visit shows the alternate
// page and resets the counter.
func (s *Server) Custom404(w http.ResponseWriter, r *http.Request) {
	clicks := 0
	if cookie, err := r.Cookie(clicksCookie); err == nil {
		clicks, _ = strconv.Atoi(cookie.Value)
	}
	clicks++

	page, title := "404.html", "404 Not Found"
	if clicks >= 2 {
		clicks = 0
		page, title = "404_milton.html", "MILTON"
	}

	http.SetCookie(w, &http.Cookie{
		Name:     clicksCookie,
		Value:    strconv.Itoa(clicks),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.Templates.Render(w, page, s.page(w, r, title))
}
