package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

type AdminHandler struct {
	UserService         *service.UserService
	HousekeepingService *service.HousekeepingService
}

// HandleListUsers godoc
//
//	@Summary	List users
//	@Tags		Admin
//	@Produce	json
//	@Success	200	{array}	UserResponse
//	@Security	BearerAuth
//	@Router		/v1/users [get].
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserService.List(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list users")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(users, toUser))
}

// HandleBlobDeletions godoc
//
//	@Summary		Pending storage deletions
//	@Description	Storage objects whose deletion failed and is being retried.
//	@Tags			Admin
//	@Produce		json
//	@Param			limit	query	int	false	"Maximum records, default 100"
//	@Success		200		{array}	BlobDeletionResponse
//	@Security		BearerAuth
//	@Router			/v1/admin/blob-deletions [get].
func (h *AdminHandler) HandleBlobDeletions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	pending, err := h.HousekeepingService.Pending(r.Context(), currentUser(r.Context()), limit)
	if err != nil {
		writeServiceError(w, r, err, "list blob deletions")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(pending, func(d domain.BlobDeletion) BlobDeletionResponse {
		return BlobDeletionResponse{
			ID:            d.ID,
			Handle:        d.Handle,
			Reason:        d.Reason,
			Attempts:      d.Attempts,
			CreatedAt:     d.CreatedAt,
			LastAttemptAt: d.LastAttemptAt,
		}
	}))
}
