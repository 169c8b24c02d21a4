package http

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aussiebroadwan/persona/pkg/httpx"
	"github.com/aussiebroadwan/persona/pkg/presign"
)

type PresignRequest struct {
	// File is a name under /files/.
	File string `json:"file"`
	// Expires is an optional expiry expression such as "+10 minutes" or
	// "90s". Absent means the signer default.
	Expires string `json:"expires,omitempty"`
}

type PresignResponse struct {
	URL string `json:"url"`
}

// PresignHandler mints download links for /files/.
type PresignHandler struct {
	Signer        presign.Signer
	PublicBaseURL string
	Secret        string
}

// ServeHTTP godoc
//
//	@Summary		Presign a download link
//	@Description	Returns a /files/ URL carrying expires and signature parameters.
//	@Tags			Files
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PresignRequest	true	"File and optional expiry"
//	@Success		200		{object}	PresignResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/presign [post].
func (h *PresignHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req PresignRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "body must be a JSON object")
		return
	}
	if !validFileName(req.File) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "file must be a plain file name")
		return
	}

	exp := presign.Expiry{}
	if req.Expires != "" {
		exp = presign.Relative(req.Expires)
	}

	target := strings.TrimSuffix(h.PublicBaseURL, "/") + "/files/" + url.PathEscape(req.File)
	signed, err := h.Signer.Presign(target, h.Secret, exp)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	httpx.WriteJSON(w, http.StatusOK, PresignResponse{URL: signed})
}

func validFileName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && path.Clean(name) == name
}

// FilesHandler godoc
//
//	@Summary		Download a file
//	@Description	Requires a link produced by /api/presign.
//	@Tags			Files
//	@Param			name		path	string	true	"File name"
//	@Param			expires		query	int		true	"Unix expiry"
//	@Param			signature	query	string	true	"HMAC-SHA256 signature"
//	@Success		200
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/files/{name} [get].
func FilesHandler(files fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		if files == nil || !validFileName(name) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such file")
			return
		}

		f, err := files.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such file")
			return
		}
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "file unavailable")
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil || info.IsDir() {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such file")
			return
		}

		rs, ok := f.(io.ReadSeeker)
		if !ok {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "file unavailable")
			return
		}
		w.Header().Set("Cache-Control", "private, no-store")
		http.ServeContent(w, r, name, info.ModTime().UTC().Truncate(time.Second), rs)
	}
}
