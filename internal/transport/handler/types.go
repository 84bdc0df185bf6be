package handler

// PathParams identifies the entity addressed by a request.
type PathParams struct {
	Type string `validate:"required,max=64"` // e.g. "articles", "goods"
	ID   int64  `validate:"required,gt=0"`
}

// UploadResponse is returned by the single-file upload endpoints. An
// empty Filename means the request carried no file and nothing was
// stored.
type UploadResponse struct {
	Filename string `json:"filename"`
}

// BatchUploadResponse is returned by the batch upload endpoints.
type BatchUploadResponse struct {
	Filenames []string `json:"filenames"`
}

// DeleteResponse reports whether anything was removed. A false value
// is a normal outcome, not an error.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}
