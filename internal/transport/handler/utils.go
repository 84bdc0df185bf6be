package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

type APIError struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func writeMultipartError(w http.ResponseWriter, err error) {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "too large"):
		writeJSONError(w, "uploaded file exceeds maximum allowed size", http.StatusRequestEntityTooLarge)

	case strings.Contains(msg, "content-type isn't multipart/form-data"):
		writeJSONError(w, "invalid content type, expected multipart/form-data", http.StatusBadRequest)

	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

// detectMime sniffs the content type from the payload bytes and
// rewinds the file for the actual ingestion read.
func detectMime(file multipart.File) (string, error) {
	mime, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	return mime.String(), nil
}

func validationErrorsToMap(err error) map[string]string {
	errs := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs[field] = "is required"
			case "max":
				errs[field] = "exceeds maximum length"
			case "gt", "gte", "lte":
				errs[field] = "out of allowed range"
			default:
				errs[field] = "invalid value"
			}
		}
	} else {
		errs["error"] = err.Error()
	}
	return errs
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(APIError{
		Error: message,
	})
}
