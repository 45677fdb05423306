package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

type ProjectsHandler struct {
	MembershipAuthority *service.MembershipAuthority
}

// HandleList godoc
//
//	@Summary		List projects
//	@Description	Superusers see every project, everyone else the projects they belong to.
//	@Tags			Projects
//	@Produce		json
//	@Success		200	{array}	ProjectResponse
//	@Security		BearerAuth
//	@Router			/v1/projects [get].
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.MembershipAuthority.ListProjects(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list projects")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(projects, toProject))
}

// HandleCreate godoc
//
//	@Summary		Create a project
//	@Description	The creator becomes its first member.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateProjectRequest	true	"Project"
//	@Success		201		{object}	ProjectResponse
//	@Failure		400		{object}	ValidationErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/projects [post].
func (h *ProjectsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	p, err := h.MembershipAuthority.CreateProject(r.Context(), currentUser(r.Context()), req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, err, "create project")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toProject(p))
}

// HandleUpdate godoc
//
//	@Summary		Edit a project
//	@Description	Renames a project or replaces its description. Superuser or creator only.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Project ID"
//	@Param			request	body		UpdateProjectRequest	true	"Changes"
//	@Success		200		{object}	ProjectResponse
//	@Failure		400		{object}	ValidationErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/projects/{id} [patch].
func (h *ProjectsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	ctx := r.Context()
	p, err := h.MembershipAuthority.GetProject(ctx, currentUser(ctx), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "update project")
		return
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}

	p, err = h.MembershipAuthority.UpdateProject(ctx, currentUser(ctx), p.ID, p.Name, p.Description)
	if err != nil {
		writeServiceError(w, r, err, "update project")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProject(p))
}

// HandleGet godoc
//
//	@Summary	Get a project
//	@Tags		Projects
//	@Produce	json
//	@Param		id	path		string	true	"Project ID"
//	@Success	200	{object}	ProjectResponse
//	@Failure	403	{object}	httpx.ErrorResponse	"not a member"
//	@Failure	404	{object}	httpx.ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/projects/{id} [get].
func (h *ProjectsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.MembershipAuthority.GetProject(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "get project")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toProject(p))
}

// HandleDelete godoc
//
//	@Summary		Delete a project
//	@Description	Removes every file, membership and the project. Storage objects that could not be removed are listed in warnings and retried in the background.
//	@Tags			Projects
//	@Produce		json
//	@Param			id	path		string	true	"Project ID"
//	@Success		200	{object}	DeleteResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/projects/{id} [delete].
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	report, err := h.MembershipAuthority.DeleteProject(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "delete project")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toDelete(report))
}

// HandleListMembers godoc
//
//	@Summary	List project members
//	@Tags		Projects
//	@Produce	json
//	@Param		id	path	string	true	"Project ID"
//	@Success	200	{array}	MemberResponse
//	@Security	BearerAuth
//	@Router		/v1/projects/{id}/members [get].
func (h *ProjectsHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.MembershipAuthority.ListMembers(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "list members")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(members, func(m domain.Membership) MemberResponse {
		return MemberResponse{UserID: m.UserID, AddedBy: m.AddedBy, AddedAt: m.AddedAt}
	}))
}

// HandleAddMembers godoc
//
//	@Summary		Add project members
//	@Description	Adds each listed user who is not already a member. Repeats are ignored.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Project ID"
//	@Param			request	body		AddMembersRequest	true	"User IDs"
//	@Success		200		{object}	AddMembersResponse	"number of memberships created"
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		404		{object}	httpx.ErrorResponse	"project or user not found"
//	@Security		BearerAuth
//	@Router			/v1/projects/{id}/members [post].
func (h *ProjectsHandler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	var req AddMembersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if len(req.UserIDs) == 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "user_ids is required")
		return
	}

	added, err := h.MembershipAuthority.AddMembers(r.Context(), currentUser(r.Context()), r.PathValue("id"), req.UserIDs)
	if err != nil {
		writeServiceError(w, r, err, "add members")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, AddMembersResponse{Added: added})
}

// HandleRemoveMember godoc
//
//	@Summary	Remove a project member
//	@Tags		Projects
//	@Param		id		path	string	true	"Project ID"
//	@Param		userID	path	string	true	"User ID"
//	@Success	204
//	@Failure	409	{object}	httpx.ErrorResponse	"the creator cannot be removed"
//	@Security	BearerAuth
//	@Router		/v1/projects/{id}/members/{userID} [delete].
func (h *ProjectsHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := h.MembershipAuthority.RemoveMember(r.Context(), currentUser(r.Context()), r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, r, err, "remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
