package web

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"

	"github.com/erazemk/najdeno/internal/matcher"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/uploads"
)

// MaxUploadSize bounds a report form including its image.
const MaxUploadSize = 16 << 20

type reportPage struct {
	PageData
	Kind model.Kind
	Form model.ItemInput
}

type similarPage struct {
	PageData
	Item    *model.Item
	Matches []matcher.Match
	// Reported is true right after filing, false when revisiting.
	Reported bool
}

func listURL(kind model.Kind) string {
	return "/" + string(kind)
}

func itemURL(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}

// ReportPage handles GET /report/{kind}.
func (s *Server) ReportPage(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseKind(r.PathValue("kind"))
	if !ok {
		s.NotFound(w, r)
		return
	}

	form := model.ItemInput{}
	if claims := GetWebClaims(r.Context()); claims != nil {
		form.ContactName = claims.FullName
	}

	s.Templates.Render(w, "report.html", &reportPage{
		PageData: s.page(w, r, "Report "+kind.Title()+" Item"),
		Kind:     kind,
		Form:     form,
	})
}

// ReportSubmit handles POST /report/{kind}. After storing the report it runs
// the matcher and shows the suggestions, if there are any.
func (s *Server) ReportSubmit(w http.ResponseWriter, r *http.Request) {
	kind, ok := model.ParseKind(r.PathValue("kind"))
	if !ok {
		s.NotFound(w, r)
		return
	}
	claims := GetWebClaims(r.Context())

	image, err := parseReportForm(w, r)
	if err != nil {
		slog.Warn("invalid report form", "error", err)
		s.renderReportErrors(w, r, kind, model.ItemInput{}, []string{"The form could not be read. Images must be smaller than 16 MB."})
		return
	}
	if image != nil {
		defer image.Close()
	}

	in := model.ItemInputFromForm(r.Form)
	if errs := in.Validate(); len(errs) > 0 {
		s.renderReportErrors(w, r, kind, in, errs)
		return
	}

	var filename string
	if image != nil {
		filename, err = s.Images.Save(image)
		if errors.Is(err, uploads.ErrInvalidImage) {
			s.renderReportErrors(w, r, kind, in, []string{"Please upload a PNG, JPEG or GIF image."})
			return
		}
		if err != nil {
			slog.Error("failed to save image", "error", err)
			s.renderReportErrors(w, r, kind, in, []string{"The image could not be saved."})
			return
		}
	}

	item, err := store.CreateItem(r.Context(), s.DB, kind, in, filename, &claims.UserID)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		if filename != "" {
			s.Images.Remove(filename)
		}
		s.renderReportErrors(w, r, kind, in, []string{"The report could not be saved."})
		return
	}

	matches, err := matcher.Suggest(r.Context(), store.New(s.DB), *item)
	if err != nil {
		slog.Error("failed to find matches", "item", item.ID, "error", err)
	}
	slog.Info("item reported", "user", claims.Username, "item", item.ID, "kind", kind, "matches", len(matches))

	if len(matches) == 0 {
		setFlash(w, flashSuccess, kind.Title()+" item reported successfully!")
		http.Redirect(w, r, listURL(kind), http.StatusSeeOther)
		return
	}

	p := &similarPage{
		PageData: s.page(w, r, "Similar Items"),
		Item:     item,
		Matches:  matches,
		Reported: true,
	}
	if kind == model.KindLost {
		p.Success = "Lost item reported successfully! We found some similar unclaimed found items that might be yours."
	} else {
		p.Success = "Found item reported successfully! We found some similar unclaimed lost items that might match what you found."
	}
	s.Templates.Render(w, "similar.html", p)
}

// parseReportForm parses a multipart or urlencoded report form and returns
// the uploaded image, if one was chosen.
func parseReportForm(w http.ResponseWriter, r *http.Request) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	err := r.ParseMultipartForm(MaxUploadSize)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, r.ParseForm()
	}
	if err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// Browsers send an empty part when no file was chosen.
	if header.Filename == "" || header.Size == 0 {
		file.Close()
		return nil, nil
	}
	return file, nil
}

func (s *Server) renderReportErrors(w http.ResponseWriter, r *http.Request, kind model.Kind, in model.ItemInput, errs []string) {
	p := &reportPage{
		PageData: s.page(w, r, "Report "+kind.Title()+" Item"),
		Kind:     kind,
		Form:     in,
	}
	p.Errors = errs
	s.Templates.RenderStatus(w, http.StatusBadRequest, "report.html", p)
}

// loadItem fetches the {id} item. When it is missing it flashes an error,
// redirects to fallback and returns nil.
func (s *Server) loadItem(w http.ResponseWriter, r *http.Request, fallback string) *model.Item {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.NotFound(w, r)
		return nil
	}

	item, err := store.GetItem(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get item", "item", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil
	}
	if item == nil {
		setFlash(w, flashError, "Item not found!")
		http.Redirect(w, r, fallback, http.StatusSeeOther)
		return nil
	}
	return item
}

// ItemDetailPage handles GET /items/{id}.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/")
	if item == nil {
		return
	}

	s.Templates.Render(w, "item_detail.html", &struct {
		PageData
		Item *model.Item
	}{
		PageData: s.page(w, r, item.Name),
		Item:     item,
	})
}

// ItemMatchesPage handles GET /items/{id}/matches.
func (s *Server) ItemMatchesPage(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/")
	if item == nil {
		return
	}

	matches, err := matcher.Suggest(r.Context(), store.New(s.DB), *item)
	if err != nil {
		slog.Error("failed to find matches", "item", item.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "similar.html", &similarPage{
		PageData: s.page(w, r, "Possible Matches"),
		Item:     item,
		Matches:  matches,
	})
}

type claimPage struct {
	PageData
	Item *model.Item
	Form model.ClaimInput
}

// ClaimPage handles GET /items/{id}/claim.
func (s *Server) ClaimPage(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/")
	if item == nil {
		return
	}
	if item.Status != model.ItemStatusUnclaimed {
		setFlash(w, flashError, "This item has already been claimed.")
		http.Redirect(w, r, itemURL(item.ID), http.StatusSeeOther)
		return
	}

	p := &claimPage{PageData: s.page(w, r, "Claim "+item.Name), Item: item}
	if p.User != nil {
		p.Form.Name = p.User.FullName
	}
	s.Templates.Render(w, "claim.html", p)
}

// ClaimSubmit handles POST /items/{id}/claim.
func (s *Server) ClaimSubmit(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/")
	if item == nil {
		return
	}
	claims := GetWebClaims(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	in := model.ClaimInputFromForm(r.Form)
	if errs := in.Validate(); len(errs) > 0 {
		p := &claimPage{PageData: s.page(w, r, "Claim "+item.Name), Item: item, Form: in}
		p.Errors = errs
		s.Templates.RenderStatus(w, http.StatusBadRequest, "claim.html", p)
		return
	}

	claim, err := store.CreateClaim(r.Context(), s.DB, item.ID, in, &claims.UserID)
	switch {
	case errors.Is(err, store.ErrItemClaimed):
		setFlash(w, flashError, "This item has already been claimed.")
		http.Redirect(w, r, itemURL(item.ID), http.StatusSeeOther)
		return
	case errors.Is(err, store.ErrItemNotFound):
		setFlash(w, flashError, "Item not found!")
		http.Redirect(w, r, listURL(item.Kind), http.StatusSeeOther)
		return
	case err != nil:
		slog.Error("failed to create claim", "item", item.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("item claimed", "user", claims.Username, "item", item.ID, "claim", claim.ID)
	setFlash(w, flashSuccess, "Item claimed successfully! We will contact you soon.")
	http.Redirect(w, r, listURL(item.Kind), http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /items/{id}/delete. Only the reporter or an
// admin may delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	item := s.loadItem(w, r, "/")
	if item == nil {
		return
	}
	claims := GetWebClaims(r.Context())

	if !item.ModifiableBy(claims.UserID, claims.Role) {
		setFlash(w, flashError, "You do not have permission to delete this item.")
		http.Redirect(w, r, listURL(item.Kind), http.StatusSeeOther)
		return
	}

	if err := s.deleteItem(r, item); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	setFlash(w, flashSuccess, item.Kind.Title()+" item deleted successfully!")
	http.Redirect(w, r, listURL(item.Kind), http.StatusSeeOther)
}

// deleteItem removes an item with its claims and its stored image.
func (s *Server) deleteItem(r *http.Request, item *model.Item) error {
	if err := store.DeleteItem(r.Context(), s.DB, item.ID); err != nil && !errors.Is(err, store.ErrItemNotFound) {
		slog.Error("failed to delete item", "item", item.ID, "error", err)
		return err
	}
	if item.ImageFilename != "" {
		if err := s.Images.Remove(item.ImageFilename); err != nil {
			slog.Warn("failed to remove item image", "item", item.ID, "error", err)
		}
	}
	slog.Info("item deleted", "user", GetWebClaims(r.Context()).Username, "item", item.ID)
	return nil
}

// UploadGet handles GET /uploads/{name}.
func (s *Server) UploadGet(w http.ResponseWriter, r *http.Request) {
	f, err := s.Images.Open(r.PathValue("name"))
	if errors.Is(err, uploads.ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
		s.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to open upload", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, f); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
