package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/a-d-w-s/assethub/internal/transport/handler"
)

func NewRouter(h *handler.Handler) chi.Router {
	r := chi.NewRouter()

	r.Route("/api/{type}/{id}", func(r chi.Router) {
		r.Post("/image", h.UploadMainImage)
		r.Post("/gallery", h.UploadGallery)
		r.Post("/documents", h.UploadDocuments)

		r.Get("/images", h.ListImages)
		r.Get("/files", h.ListFiles)

		r.Delete("/assets", h.DeleteEntity)
		r.Delete("/assets/{filename}", h.DeleteAsset)
	})

	return r
}
