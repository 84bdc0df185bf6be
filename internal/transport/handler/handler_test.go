package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a-d-w-s/assethub/internal/config"
	"github.com/a-d-w-s/assethub/internal/entities"
)

type stubUseCase struct {
	lastUpload *entities.Upload
	lastType   string
	lastID     int64
	deleted    bool
}

func (s *stubUseCase) UploadMainImage(_ context.Context, up *entities.Upload, entityType string, id int64) (string, error) {
	s.lastUpload, s.lastType, s.lastID = up, entityType, id
	if up.NoFile {
		return "", nil
	}
	// Drain like the real ingestor would.
	_, _ = io.Copy(io.Discard, up.Content)
	return "000001-main-original.png", nil
}

func (s *stubUseCase) UploadGalleryImages(_ context.Context, ups []*entities.Upload, _ string, _ int64) ([]string, error) {
	return nil, nil
}

func (s *stubUseCase) UploadDocuments(_ context.Context, ups []*entities.Upload, _ string, _ int64) ([]string, error) {
	return nil, nil
}

func (s *stubUseCase) DeleteAsset(_ context.Context, entityType string, id int64, _ string) bool {
	s.lastType, s.lastID = entityType, id
	return s.deleted
}

func (s *stubUseCase) DeleteEntity(_ context.Context, entityType string, id int64) bool {
	s.lastType, s.lastID = entityType, id
	return s.deleted
}

func (s *stubUseCase) ListImages(entityType string, id int64, _ bool) entities.ImageListing {
	return entities.ImageListing{Path: "articles/000001"}
}

func (s *stubUseCase) ListFiles(entityType string, id int64) entities.FileListing {
	return entities.FileListing{Path: "articles/000001/files"}
}

func newServer(stub *stubUseCase) http.Handler {
	cfg := config.Defaults()
	cfg.Upload.MaxRequestBodyMB = 8
	cfg.Upload.MaxMultipartMemoryMB = 8

	h := New(stub, cfg)

	r := chi.NewRouter()
	r.Route("/api/{type}/{id}", func(r chi.Router) {
		r.Post("/image", h.UploadMainImage)
		r.Delete("/assets", h.DeleteEntity)
		r.Delete("/assets/{filename}", h.DeleteAsset)
		r.Get("/images", h.ListImages)
	})
	return r
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestUploadMainImageSniffsContent(t *testing.T) {
	stub := &stubUseCase{}
	srv := newServer(stub)

	body, contentType := multipartBody(t, "file", "claims-to-be.jpg", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/articles/1/image", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, stub.lastUpload)
	assert.Equal(t, "image/png", stub.lastUpload.MimeType, "declared MIME comes from the payload, not the filename")
	assert.Equal(t, "articles", stub.lastType)
	assert.Equal(t, int64(1), stub.lastID)
}

func TestUploadMainImageMissingFile(t *testing.T) {
	stub := &stubUseCase{}
	srv := newServer(stub)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/articles/1/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, stub.lastUpload)
	assert.True(t, stub.lastUpload.NoFile)

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Filename, "no asset created is a normal response")
}

func TestUploadRejectsBadID(t *testing.T) {
	srv := newServer(&stubUseCase{})

	req := httptest.NewRequest(http.MethodPost, "/api/articles/abc/image", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAsset(t *testing.T) {
	stub := &stubUseCase{deleted: true}
	srv := newServer(stub)

	req := httptest.NewRequest(http.MethodDelete, "/api/articles/2/assets/000002-main-original.jpg", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp DeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
	assert.Equal(t, int64(2), stub.lastID)
}

func TestDeleteAssetNotFound(t *testing.T) {
	srv := newServer(&stubUseCase{deleted: false})

	req := httptest.NewRequest(http.MethodDelete, "/api/articles/3/assets/nonexistent.pdf", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	// Absence is reported in the body, never as an error status.
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp DeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Deleted)
}

func TestListImages(t *testing.T) {
	srv := newServer(&stubUseCase{})

	req := httptest.NewRequest(http.MethodGet, "/api/articles/1/images?gallery=1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var listing entities.ImageListing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, "articles/000001", listing.Path)
}
