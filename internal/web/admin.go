package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// adminRow is an item with its most recent claim, if any.
type adminRow struct {
	Item  model.Item
	Claim *model.Claim
}

// AdminPage handles GET /admin.
func (s *Server) AdminPage(w http.ResponseWriter, r *http.Request) {
	lost, err := s.adminRows(r, model.KindLost)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	found, err := s.adminRows(r, model.KindFound)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	claims, err := store.ListClaims(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list claims", "error", err)
	}

	s.Templates.Render(w, "admin.html", &struct {
		PageData
		LostItems  []adminRow
		FoundItems []adminRow
		Claims     []model.Claim
	}{
		PageData:   s.page(w, r, "Admin Dashboard"),
		LostItems:  lost,
		FoundItems: found,
		Claims:     claims,
	})
}

func (s *Server) adminRows(r *http.Request, kind model.Kind) ([]adminRow, error) {
	items, err := store.ListItems(r.Context(), s.DB, kind, "")
	if err != nil {
		slog.Error("failed to list items", "kind", kind, "error", err)
		return nil, err
	}

	rows := make([]adminRow, 0, len(items))
	for _, item := range items {
		claim, err := store.LatestClaimForItem(r.Context(), s.DB, item.ID)
		if err != nil {
			slog.Error("failed to get latest claim", "item", item.ID, "error", err)
			return nil, err
		}
		rows = append(rows, adminRow{Item: item, Claim: claim})
	}
	return rows, nil
}

// AdminItemStatusSubmit handles POST /admin/items/{id}/status.
func (s *Server) AdminItemStatusSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.NotFound(w, r)
		return
	}

	status := r.FormValue("status")
	if !model.ValidItemStatus(status) {
		setFlash(w, flashError, "Invalid status.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	err = store.SetItemStatus(r.Context(), s.DB, id, status)
	switch {
	case errors.Is(err, store.ErrItemNotFound):
		setFlash(w, flashError, "Item not found!")
	case err != nil:
		slog.Error("failed to set item status", "item", id, "error", err)
		setFlash(w, flashError, "Status could not be updated.")
	default:
		slog.Info("item status changed", "user", GetWebClaims(r.Context()).Username, "item", id, "status", status)
		setFlash(w, flashSuccess, "Item status updated successfully!")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

type editPage struct {
	PageData
	Item *model.Item
	Form model.ItemInput
}

// AdminItemEditPage handles GET /admin/items/{id}/edit.
func (s *Server) AdminItemEditPage(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/admin")
	if item == nil {
		return
	}

	s.Templates.Render(w, "item_edit.html", &editPage{
		PageData: s.page(w, r, "Edit "+item.Kind.Title()+" Item"),
		Item:     item,
		Form: model.ItemInput{
			Name:         item.Name,
			Category:     item.Category,
			Description:  item.Description,
			EventDate:    item.EventDate,
			Location:     item.Location,
			ContactName:  item.ContactName,
			ContactEmail: item.ContactEmail,
			ContactPhone: item.ContactPhone,
		},
	})
}

// AdminItemEditSubmit handles POST /admin/items/{id}/edit.
func (s *Server) AdminItemEditSubmit(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/admin")
	if item == nil {
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := model.ItemInputFromForm(r.Form)
	if errs := in.Validate(); len(errs) > 0 {
		p := &editPage{PageData: s.page(w, r, "Edit "+item.Kind.Title()+" Item"), Item: item, Form: in}
		p.Errors = errs
		s.Templates.RenderStatus(w, http.StatusBadRequest, "item_edit.html", p)
		return
	}

	if err := store.UpdateItem(r.Context(), s.DB, item.ID, in); err != nil {
		slog.Error("failed to update item", "item", item.ID, "error", err)
		setFlash(w, flashError, "Item could not be updated.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	slog.Info("item updated", "user", GetWebClaims(r.Context()).Username, "item", item.ID)
	setFlash(w, flashSuccess, item.Kind.Title()+" item updated successfully!")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// AdminItemDeleteSubmit handles POST /admin/items/{id}/delete.
func (s *Server) AdminItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/admin")
	if item == nil {
		return
	}

	if err := s.deleteItem(r, item); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	setFlash(w, flashSuccess, item.Kind.Title()+" item deleted successfully!")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// AdminClaimStatusSubmit handles POST /admin/claims/{id}/status.
func (s *Server) AdminClaimStatusSubmit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.NotFound(w, r)
		return
	}

	status := r.FormValue("status")
	if !model.ValidClaimStatus(status) {
		setFlash(w, flashError, "Invalid status.")
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	err = store.SetClaimStatus(r.Context(), s.DB, id, status)
	switch {
	case errors.Is(err, store.ErrClaimNotFound):
		setFlash(w, flashError, "Claim not found!")
	case err != nil:
		slog.Error("failed to set claim status", "claim", id, "error", err)
		setFlash(w, flashError, "Claim could not be updated.")
	default:
		slog.Info("claim status changed", "user", GetWebClaims(r.Context()).Username, "claim", id, "status", status)
		setFlash(w, flashSuccess, "Claim status updated successfully!")
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
