package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/a-d-w-s/assethub/internal/config"
	"github.com/a-d-w-s/assethub/internal/entities"
	"github.com/a-d-w-s/assethub/internal/processor"
	use_case "github.com/a-d-w-s/assethub/internal/use-case"
)

type UseCase interface {
	UploadMainImage(ctx context.Context, up *entities.Upload, entityType string, id int64) (string, error)
	UploadGalleryImages(ctx context.Context, ups []*entities.Upload, entityType string, id int64) ([]string, error)
	UploadDocuments(ctx context.Context, ups []*entities.Upload, entityType string, id int64) ([]string, error)
	DeleteAsset(ctx context.Context, entityType string, id int64, filename string) bool
	DeleteEntity(ctx context.Context, entityType string, id int64) bool
	ListImages(entityType string, id int64, withGallery bool) entities.ImageListing
	ListFiles(entityType string, id int64) entities.FileListing
}

type Handler struct {
	useCase   UseCase
	cfg       *config.Config
	validator *validator.Validate
}

func New(useCase UseCase, cfg *config.Config) *Handler {
	return &Handler{
		useCase:   useCase,
		cfg:       cfg,
		validator: validator.New(),
	}
}

// params extracts and validates the entity type and ID from the
// route. A nil return means the error response was already written.
func (h *Handler) params(w http.ResponseWriter, r *http.Request) *PathParams {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, "entity id must be an integer", http.StatusBadRequest)
		return nil
	}

	p := &PathParams{
		Type: chi.URLParam(r, "type"),
		ID:   id,
	}

	if err := h.validator.Struct(p); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(validationErrorsToMap(err))
		return nil
	}

	return p
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.Upload.MaxRequestBodyMB<<20)

	if err := r.ParseMultipartForm(h.cfg.Upload.MaxMultipartMemoryMB << 20); err != nil {
		writeMultipartError(w, err)
		return false
	}

	return true
}

// UploadMainImage handles POST /api/{type}/{id}/image.
func (h *Handler) UploadMainImage(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	up, closeUp := openUpload(r, "file")
	defer closeUp()

	filename, err := h.useCase.UploadMainImage(r.Context(), up, p.Type, p.ID)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{Filename: filename})
}

// UploadGallery handles POST /api/{type}/{id}/gallery.
func (h *Handler) UploadGallery(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	ups, closeUps := openUploads(r, "files")
	defer closeUps()

	filenames, err := h.useCase.UploadGalleryImages(r.Context(), ups, p.Type, p.ID)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BatchUploadResponse{Filenames: filenames})
}

// UploadDocuments handles POST /api/{type}/{id}/documents.
func (h *Handler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	ups, closeUps := openUploads(r, "files")
	defer closeUps()

	filenames, err := h.useCase.UploadDocuments(r.Context(), ups, p.Type, p.ID)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, BatchUploadResponse{Filenames: filenames})
}

// DeleteAsset handles DELETE /api/{type}/{id}/assets/{filename}.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}

	filename := chi.URLParam(r, "filename")
	deleted := h.useCase.DeleteAsset(r.Context(), p.Type, p.ID, filename)

	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// DeleteEntity handles DELETE /api/{type}/{id}/assets.
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}

	deleted := h.useCase.DeleteEntity(r.Context(), p.Type, p.ID)

	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: deleted})
}

// ListImages handles GET /api/{type}/{id}/images.
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}

	withGallery := r.URL.Query().Get("gallery") == "1"
	writeJSON(w, http.StatusOK, h.useCase.ListImages(p.Type, p.ID, withGallery))
}

// ListFiles handles GET /api/{type}/{id}/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	p := h.params(w, r)
	if p == nil {
		return
	}

	writeJSON(w, http.StatusOK, h.useCase.ListFiles(p.Type, p.ID))
}

// writeUploadError translates the service error taxonomy to HTTP.
// Absence of an asset never lands here; that is a normal response.
func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, use_case.ErrUnsupportedType):
		writeJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, use_case.ErrUpload), errors.Is(err, use_case.ErrInvalidName):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, processor.ErrDecode):
		writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		sentry.CaptureException(err)
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		sentry.CaptureException(err)
	}
}

// openUpload builds the upload descriptor for a single-file field.
// The returned closer releases the underlying multipart files.
func openUpload(r *http.Request, field string) (*entities.Upload, func()) {
	file, fh, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return &entities.Upload{NoFile: true}, func() {}
		}
		return &entities.Upload{Err: err}, func() {}
	}

	return describeUpload(file, fh), func() { file.Close() }
}

// openUploads builds descriptors for a multi-file field, preserving
// batch positions.
func openUploads(r *http.Request, field string) ([]*entities.Upload, func()) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, func() {}
	}

	var ups []*entities.Upload
	var open []multipart.File
	for _, fh := range r.MultipartForm.File[field] {
		file, err := fh.Open()
		if err != nil {
			ups = append(ups, &entities.Upload{Filename: fh.Filename, Err: err})
			continue
		}
		open = append(open, file)
		ups = append(ups, describeUpload(file, fh))
	}

	return ups, func() {
		for _, f := range open {
			f.Close()
		}
	}
}

// describeUpload sniffs the real content type from the payload; the
// declared MIME handed to the services never comes from the client
// filename or headers.
func describeUpload(file multipart.File, fh *multipart.FileHeader) *entities.Upload {
	up := &entities.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Content:  file,
	}

	mime, err := detectMime(file)
	if err != nil {
		up.Err = err
		return up
	}
	up.MimeType = mime

	return up
}
