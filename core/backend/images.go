package backend

import (
	"io"
	"net/http"
	"path"

	"github.com/gorilla/handlers"

	"github.com/autotrack-work/backend/core/logger"
)

// imageKeyPrefix namespaces uploaded files in the object store
const imageKeyPrefix = "images/"

// storeImage reads the single file of a multipart form submission and
// uploads it to the object store. It writes the error response itself
// and returns the public url on success.
func (b *Backend) storeImage(w http.ResponseWriter, r *http.Request) (string, bool) {
	if b.storage == nil {
		errorResponse(w, http.StatusInternalServerError, "object storage is not configured")
		return "", false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, http.StatusBadRequest, "file is missing")
		return "", false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		internalError(w, r, err)
		return "", false
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	// keys are derived from the submitted file name, never from a
	// client-supplied path
	key := imageKeyPrefix + path.Base(header.Filename)
	if err := b.storage.UploadData(key, data, contentType); err != nil {
		internalError(w, r, err)
		return "", false
	}
	return b.storage.PublicURL(key), true
}

func (b *Backend) handleImageRoutes() {
	logger.Default().Debugln("backend: handle image routes")

	imageUpload := func(w http.ResponseWriter, r *http.Request) {
		url, ok := b.storeImage(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusCreated, map[string]string{"url": url})
	}

	b.api.Handle("/images", handlers.CompressHandler(http.HandlerFunc(imageUpload))).
		Methods(http.MethodOptions, http.MethodPost)
}
