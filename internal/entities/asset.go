package entities

import (
	"io"
	"time"
)

// Upload is the transport-level descriptor of one uploaded file, as
// handed to the ingestion services. Err carries a transport failure;
// NoFile marks the "empty selection" sentinel, which is not a failure.
type Upload struct {
	Filename string // client-supplied name, never trusted for extensions
	MimeType string // declared content type
	Size     int64
	Content  io.Reader
	Err      error
	NoFile   bool
}

// OK reports whether the transport delivered the upload successfully.
func (u *Upload) OK() bool {
	return u.Err == nil && !u.NoFile
}

// ImageInfo describes one stored image file.
type ImageInfo struct {
	File string     `json:"file"`
	Time *time.Time `json:"time"`
}

// ImageListing is the per-entity image inventory.
type ImageListing struct {
	Path    string      `json:"path"`
	Main    ImageInfo   `json:"main"`
	Gallery []ImageInfo `json:"gallery"`
}

// FileInfo describes one stored document.
type FileInfo struct {
	File string `json:"file"`
	Size int64  `json:"size"`
}

// FileListing is the per-entity document inventory.
type FileListing struct {
	Path string     `json:"path"`
	Main []FileInfo `json:"main"`
}
