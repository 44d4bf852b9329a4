package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// recentLimit is how many items of each kind the dashboard shows.
const recentLimit = 5

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	lost, err := store.RecentUnclaimed(r.Context(), s.DB, model.KindLost, recentLimit)
	if err != nil {
		slog.Error("failed to list recent lost items", "error", err)
	}
	found, err := store.RecentUnclaimed(r.Context(), s.DB, model.KindFound, recentLimit)
	if err != nil {
		slog.Error("failed to list recent found items", "error", err)
	}
	stats, err := store.CountItems(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to count items", "error", err)
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		LostItems  []model.Item
		FoundItems []model.Item
		Stats      store.Stats
	}{
		PageData:   s.page(w, r, "Dashboard"),
		LostItems:  lost,
		FoundItems: found,
		Stats:      stats,
	})
}

// LostPage handles GET /lost.
func (s *Server) LostPage(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, model.KindLost)
}

// FoundPage handles GET /found.
func (s *Server) FoundPage(w http.ResponseWriter, r *http.Request) {
	s.listPage(w, r, model.KindFound)
}

func (s *Server) listPage(w http.ResponseWriter, r *http.Request, kind model.Kind) {
	items, err := store.ListItems(r.Context(), s.DB, kind, "")
	if err != nil {
		slog.Error("failed to list items", "kind", kind, "error", err)
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		Kind  model.Kind
		Items []model.Item
	}{
		PageData: s.page(w, r, kind.Title()+" Items"),
		Kind:     kind,
		Items:    items,
	})
}
