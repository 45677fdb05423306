package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

type FilesHandler struct {
	FileRegistry   *service.FileRegistry
	MaxUploadBytes int64
}

// HandleUpload godoc
//
//	@Summary		Upload a file
//	@Description	Stores a file in the project. Members only.
//	@Tags			Files
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Project ID"
//	@Param			title	formData	string	false	"Title, defaults to the filename"
//	@Param			file	formData	file	true	"Content"
//	@Success		201		{object}	FileResponse
//	@Failure		400		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse	"not a member"
//	@Failure		413		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/projects/{id}/files [post].
func (h *FilesHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := currentUser(ctx)
	projectID := r.PathValue("id")

	// Outsiders are refused before any of the body is read.
	if _, err := h.FileRegistry.Authority.Authorize(ctx, user, projectID); err != nil {
		writeServiceError(w, r, err, "upload file")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", "Upload exceeds the size limit")
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	f, err := h.FileRegistry.Upload(ctx, user, projectID, service.FileUpload{
		Title:       r.FormValue("title"),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, r, err, "upload file")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toFile(f))
}

// HandleListProject godoc
//
//	@Summary	List project files
//	@Tags		Files
//	@Produce	json
//	@Param		id	path	string	true	"Project ID"
//	@Success	200	{array}	FileResponse
//	@Security	BearerAuth
//	@Router		/v1/projects/{id}/files [get].
func (h *FilesHandler) HandleListProject(w http.ResponseWriter, r *http.Request) {
	files, err := h.FileRegistry.ListForProject(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "list files")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(files, toFile))
}

// HandleListMine lists the caller's own uploads.
//
//	@Summary	List my files
//	@Tags		Files
//	@Produce	json
//	@Success	200	{array}	FileResponse
//	@Security	BearerAuth
//	@Router		/v1/files [get].
func (h *FilesHandler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	files, err := h.FileRegistry.ListForUser(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list files")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(files, toFile))
}

// HandleGet godoc
//
//	@Summary	Get a file
//	@Tags		Files
//	@Produce	json
//	@Param		id	path		string	true	"File ID"
//	@Success	200	{object}	FileResponse
//	@Failure	403	{object}	httpx.ErrorResponse	"not a member"
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/files/{id} [get].
func (h *FilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	f, err := h.FileRegistry.Get(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get file")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toFile(f))
}

// HandleDelete godoc
//
//	@Summary		Delete a file
//	@Description	Only the uploader or a superuser may delete. A storage failure is reported in warnings; the file is still removed.
//	@Tags			Files
//	@Produce		json
//	@Param			id	path		string	true	"File ID"
//	@Success		200	{object}	DeleteResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/files/{id} [delete].
func (h *FilesHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	report, err := h.FileRegistry.Delete(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "delete file")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDelete(report))
}
