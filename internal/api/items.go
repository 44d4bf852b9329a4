package api

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/erazemk/najdeno/internal/matcher"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
	"github.com/erazemk/najdeno/internal/uploads"
)

// MaxUploadSize bounds the body of a report carrying an image.
const MaxUploadSize = 16 << 20

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	DB     *sql.DB
	Images *uploads.Dir
}

type reportRequest struct {
	Kind string `json:"kind"`
	model.ItemInput
}

type reportResponse struct {
	Item    *model.Item     `json:"item"`
	Matches []matcher.Match `json:"matches"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var kind model.Kind
	if k := r.URL.Query().Get("kind"); k != "" {
		parsed, ok := model.ParseKind(k)
		if !ok {
			jsonError(w, http.StatusBadRequest, "kind must be lost or found")
			return
		}
		kind = parsed
	}

	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidItemStatus(status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, kind, status)
	if err != nil {
		slog.Error("listing items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items. It accepts JSON, or a multipart form
// with an optional "image" file, and answers with the new item and its
// suggested matches.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	req, image, err := readReport(w, r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if image != nil {
		defer image.Close()
	}

	kind, ok := model.ParseKind(req.Kind)
	if !ok {
		jsonError(w, http.StatusBadRequest, "kind must be lost or found")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		jsonValidation(w, errs)
		return
	}

	var filename string
	if image != nil {
		filename, ok = h.saveImage(w, image)
		if !ok {
			return
		}
	}

	item, err := store.CreateItem(r.Context(), h.DB, kind, req.ItemInput, filename, &claims.UserID)
	if err != nil {
		slog.Error("creating item", "error", err)
		if filename != "" {
			h.Images.Remove(filename)
		}
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	// The report is stored at this point, so a matcher failure only costs
	// the suggestions.
	matches, err := matcher.Suggest(r.Context(), store.New(h.DB), *item)
	if err != nil {
		slog.Error("finding matches", "item", item.ID, "error", err)
	}
	if matches == nil {
		matches = []matcher.Match{}
	}

	slog.Info("item reported", "user", claims.Username, "item", item.ID, "kind", kind, "matches", len(matches))
	jsonResponse(w, http.StatusCreated, reportResponse{Item: item, Matches: matches})
}

func readReport(w http.ResponseWriter, r *http.Request) (reportRequest, multipart.File, error) {
	var req reportRequest
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err := decodeJSON(r, &req)
		req.ItemInput = trimInput(req.ItemInput)
		return req, nil, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		return req, nil, err
	}
	req.Kind = r.FormValue("kind")
	req.ItemInput = model.ItemInputFromForm(r.Form)

	file, _, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	return req, file, err
}

func trimInput(in model.ItemInput) model.ItemInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.EventDate = strings.TrimSpace(in.EventDate)
	in.Location = strings.TrimSpace(in.Location)
	in.ContactName = strings.TrimSpace(in.ContactName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.ContactPhone = strings.TrimSpace(in.ContactPhone)
	return in
}

func (h *ItemsHandler) saveImage(w http.ResponseWriter, image io.Reader) (string, bool) {
	filename, err := h.Images.Save(image)
	if errors.Is(err, uploads.ErrInvalidImage) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if err != nil {
		slog.Error("saving image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return "", false
	}
	return filename, true
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Matches handles GET /api/items/{id}/matches.
func (h *ItemsHandler) Matches(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}

	matches, err := matcher.Suggest(r.Context(), store.New(h.DB), *item)
	if err != nil {
		slog.Error("finding matches", "item", item.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to find matches")
		return
	}
	if matches == nil {
		matches = []matcher.Match{}
	}
	jsonResponse(w, http.StatusOK, matches)
}

// Update handles PUT /api/items/{id} (admin edit).
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	var in model.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in = trimInput(in)
	if errs := in.Validate(); len(errs) > 0 {
		jsonValidation(w, errs)
		return
	}

	err := store.UpdateItem(r.Context(), h.DB, id, in)
	if errors.Is(err, store.ErrItemNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		slog.Error("updating item", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	slog.Info("item updated", "user", GetClaims(r.Context()).Username, "item", id)
	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// SetStatus handles PUT /api/items/{id}/status (admin).
func (h *ItemsHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !model.ValidItemStatus(req.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	err := store.SetItemStatus(r.Context(), h.DB, id, req.Status)
	if errors.Is(err, store.ErrItemNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		slog.Error("setting item status", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	slog.Info("item status changed", "user", GetClaims(r.Context()).Username, "item", id, "status", req.Status)
	item, _ := store.GetItem(r.Context(), h.DB, id)
	jsonResponse(w, http.StatusOK, item)
}

// UploadImage handles PUT /api/items/{id}/image. Reporter or admin only.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	claims := GetClaims(r.Context())
	if !item.ModifiableBy(claims.UserID, claims.Role) {
		jsonError(w, http.StatusForbidden, "You do not have permission to modify this item.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	filename, ok := h.saveImage(w, file)
	if !ok {
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, filename); err != nil {
		h.Images.Remove(filename)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}
	if item.ImageFilename != "" {
		h.Images.Remove(item.ImageFilename)
	}

	item.ImageFilename = filename
	jsonResponse(w, http.StatusOK, item)
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	if item.ImageFilename == "" {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	f, err := h.Images.Open(item.ImageFilename)
	if err != nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	io.Copy(w, f)
}

// Delete handles DELETE /api/items/{id}. Reporter or admin only.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.loadItem(w, r)
	if !ok {
		return
	}
	claims := GetClaims(r.Context())
	if !item.ModifiableBy(claims.UserID, claims.Role) {
		jsonError(w, http.StatusForbidden, "You do not have permission to delete this item.")
		return
	}

	err := store.DeleteItem(r.Context(), h.DB, item.ID)
	if errors.Is(err, store.ErrItemNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		slog.Error("deleting item", "item", item.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if item.ImageFilename != "" {
		if err := h.Images.Remove(item.ImageFilename); err != nil {
			slog.Warn("removing item image", "item", item.ID, "error", err)
		}
	}

	slog.Info("item deleted", "user", claims.Username, "item", item.ID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

func (h *ItemsHandler) loadItem(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(w, r, "item")
	if !ok {
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("getting item", "item", id, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}
