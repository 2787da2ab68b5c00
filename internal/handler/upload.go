package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// maxUploadBytes bounds a single temp-file upload.
const maxUploadBytes = 10 << 20

type uploadResponse struct {
	Success  bool   `json:"success"`
	Filepath string `json:"filepath"`
	Filename string `json:"filename"`
}

// UploadTemp stages one uploaded file for a pending checkout. The form
// carries the file under "file", the logical slot under "field" (e.g.
// "host_0") and an optional batch id under "uploadId" so all files of one
// checkout land in the same directory.
func (h *Handler) UploadTemp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(ctx, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, "file part is required")
		return
	}
	defer func() { _ = file.Close() }()

	field := r.FormValue("field")
	if field == "" {
		writeError(ctx, w, http.StatusBadRequest, "field is required")
		return
	}

	staged, err := h.uploads.Stage(r.FormValue("uploadId"), field, header.Filename, file)
	if err != nil {
		zctx.From(ctx).Error("stage upload", zap.String("field", field), zap.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, "could not store upload")
		return
	}

	writeJSON(ctx, w, http.StatusOK, uploadResponse{
		Success:  true,
		Filepath: staged.Path,
		Filename: staged.Filename,
	})
}
