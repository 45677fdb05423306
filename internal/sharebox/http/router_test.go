package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	shttp "github.com/aussiebroadwan/sharebox/internal/sharebox/http"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/memory"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "sharebox-http")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

const adminPassword = "admin-password"

type env struct {
	t      *testing.T
	router *shttp.Router
	store  *memory.Store
	blobs  *blob.Memory
	signer *jwtx.EdDSASigner

	admin      domain.User
	adminToken string
}

func newEnv(t *testing.T) *env {
	t.Helper()

	pemKey, err := jwtx.GenerateEd25519PEM()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierEdDSA("sharebox")
	verifier.AddKey("k1", signer.PublicKey())

	st := memory.NewStore()
	blobs := blob.NewMemory()

	r := shttp.NewRouter(verifier, "test", st, blobs, slogx.Discard())
	invitations := &service.InvitationService{
		Store:  st,
		Tokens: service.UUIDTokens{},
		Links:  service.BaseURLLinks{BaseURL: "http://sharebox.test"},
	}
	authority := &service.MembershipAuthority{Store: st, Blobs: blobs}
	r.SessionService = &service.SessionService{Store: st, Signer: signer, Issuer: "sharebox"}
	r.UserService = &service.UserService{Store: st}
	r.BootstrapService = &service.BootstrapService{Store: st, Token: "boot"}
	r.InvitationService = invitations
	r.AccountProvisioner = &service.AccountProvisioner{Store: st, Invitations: invitations}
	r.MembershipAuthority = authority
	r.FileRegistry = &service.FileRegistry{Store: st, Blobs: blobs, Authority: authority}
	r.HousekeepingService = service.NewHousekeepingService(st, blobs, slogx.Discard(), time.Hour)
	r.ApplyRoutes()

	e := &env{t: t, router: r, store: st, blobs: blobs, signer: signer}
	e.admin = e.createUser("admin", adminPassword, true)
	e.adminToken = e.login("admin", adminPassword)
	return e
}

func (e *env) createUser(username, password string, superuser bool) domain.User {
	e.t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(e.t, err)
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		IsSuperuser:  superuser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(e.t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

func (e *env) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) json(method, path, token string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return e.do(req, token)
}

func (e *env) form(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (e *env) login(username, password string) string {
	e.t.Helper()
	rec := e.do(e.form("/v1/login", url.Values{"username": {username}, "password": {password}}), "")
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp shttp.LoginResponse
	decode(e.t, rec, &resp)
	return resp.AccessToken
}

func (e *env) upload(token, projectID, filename, content string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(e.t, mw.WriteField("title", "Title "+filename))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(e.t, err)
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/projects/"+projectID+"/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return e.do(req, token)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp httpx.ErrorResponse
	decode(t, rec, &resp)
	return resp.Error
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/livez", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/readyz", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health shttp.HealthResponse
	decode(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	assert.Equal(t, "ok", health.Checks.Storage)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestSwaggerDoc(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc struct {
		Info  struct{ Title string }                 `json:"info"`
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	decode(t, rec, &doc)
	assert.Equal(t, "Sharebox API", doc.Info.Title)

	for path, method := range map[string]string{
		"/v1/accept/{token}":       "post",
		"/v1/projects/{id}":        "patch",
		"/v1/projects/{id}/files":  "post",
		"/v1/invitations/{id}":     "delete",
		"/v1/admin/blob-deletions": "get",
	} {
		assert.Contains(t, doc.Paths[path], method, "%s %s", method, path)
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)

	rec := e.do(e.form("/v1/login", url.Values{"username": {"admin"}, "password": {"nope"}}), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid_credentials", errorCode(t, rec))

	rec = e.do(e.form("/v1/login", url.Values{"username": {"admin"}, "password": {adminPassword}}), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.SessionCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	// The cookie alone authenticates.
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.AddCookie(cookie)
	rec = e.do(req, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me shttp.UserResponse
	decode(t, rec, &me)
	assert.Equal(t, e.admin.ID, me.ID)
	assert.True(t, me.IsSuperuser)
}

func TestUnauthenticated(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/v1/me", "/v1/projects", "/v1/files", "/v1/invitations"} {
		rec := e.do(httptest.NewRequest(http.MethodGet, path, nil), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestBootstrap(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/bootstrap", strings.NewReader(`{"username":"root","email":"root@example.com","password":"password1"}`))
	rec := e.do(req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "token header is required")

	req = httptest.NewRequest(http.MethodPost, "/v1/bootstrap", strings.NewReader(`{"username":"root","email":"root@example.com","password":"password1"}`))
	req.Header.Set("X-Bootstrap-Token", "boot")
	rec = e.do(req, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "users already exist")
	assert.Contains(t, rec.Body.String(), "already been bootstrapped")
}

func TestInvitationLifecycle(t *testing.T) {
	e := newEnv(t)

	// Issue
	rec := e.json(http.MethodPost, "/v1/invitations", e.adminToken, shttp.IssueInvitationRequest{Email: "a@x.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var inv shttp.InvitationResponse
	decode(t, rec, &inv)
	assert.Equal(t, "a@x.com", inv.Email)
	assert.Equal(t, inv.CreatedAt.Add(domain.InvitationTTL), inv.ExpiresAt)
	require.True(t, strings.HasPrefix(inv.URL, "http://sharebox.test/v1/accept/"))
	token := strings.TrimPrefix(inv.URL, "http://sharebox.test/v1/accept/")

	// Duplicate
	rec = e.json(http.MethodPost, "/v1/invitations", e.adminToken, shttp.IssueInvitationRequest{Email: "A@x.com"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_email", errorCode(t, rec))

	// Open the link
	acceptPath := "/v1/accept/" + token
	rec = e.do(httptest.NewRequest(http.MethodGet, acceptPath, nil), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var opened shttp.AcceptInvitationResponse
	decode(t, rec, &opened)
	assert.Equal(t, "a@x.com", opened.Email)

	form := url.Values{
		"username":         {"alice"},
		"email":            {"b@x.com"},
		"first_name":       {"Alice"},
		"password1":        {"s3cret-pass"},
		"password2":        {"s3cret-pass"},
		"invitation_token": {token},
	}

	// Wrong email
	rec = e.do(e.form(acceptPath, form), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_invitation", errorCode(t, rec))

	// Bound email
	form.Set("email", "a@x.com")
	rec = e.do(e.form(acceptPath, form), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user shttp.UserResponse
	decode(t, rec, &user)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "alice", user.Username)

	// Spent
	form.Set("username", "alice2")
	rec = e.do(e.form(acceptPath, form), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already been used")

	// The new account can log in.
	assert.NotEmpty(t, e.login("alice", "s3cret-pass"))

	// Listing shows it accepted, cancel reports nothing to do.
	rec = e.json(http.MethodGet, "/v1/invitations", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var all []shttp.InvitationResponse
	decode(t, rec, &all)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsAccepted)

	rec = e.json(http.MethodDelete, "/v1/invitations/"+inv.ID, e.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled shttp.CancelInvitationResponse
	decode(t, rec, &cancelled)
	assert.True(t, cancelled.AlreadyAccepted)
	assert.False(t, cancelled.Cancelled)

	rec = e.json(http.MethodPost, "/v1/invitations/"+inv.ID+"/resend", e.adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAccept_ValidationErrors(t *testing.T) {
	e := newEnv(t)
	rec := e.json(http.MethodPost, "/v1/invitations", e.adminToken, shttp.IssueInvitationRequest{Email: "v@x.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv shttp.InvitationResponse
	decode(t, rec, &inv)
	token := inv.URL[strings.LastIndex(inv.URL, "/")+1:]

	rec = e.do(e.form("/v1/accept/"+token, url.Values{
		"username":         {"bad name"},
		"email":            {"v@x.com"},
		"password1":        {"short"},
		"password2":        {"short"},
		"invitation_token": {token},
	}), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var verr shttp.ValidationErrorResponse
	decode(t, rec, &verr)
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "password1")
}

func TestAccept_EndsActiveSession(t *testing.T) {
	e := newEnv(t)
	rec := e.json(http.MethodPost, "/v1/invitations", e.adminToken, shttp.IssueInvitationRequest{Email: "s@x.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv shttp.InvitationResponse
	decode(t, rec, &inv)
	path := strings.TrimPrefix(inv.URL, "http://sharebox.test")

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.AddCookie(&http.Cookie{Name: httpx.SessionCookieName, Value: e.adminToken})
	rec = e.do(req, "")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, path, rec.Header().Get("Location"))
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie must be cleared")

	// Without the cookie the flow proceeds.
	rec = e.do(httptest.NewRequest(http.MethodGet, path, nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccept_RefusesBearerSession(t *testing.T) {
	e := newEnv(t)
	rec := e.json(http.MethodPost, "/v1/invitations", e.adminToken, shttp.IssueInvitationRequest{Email: "bob@x.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var inv shttp.InvitationResponse
	decode(t, rec, &inv)
	token := inv.URL[strings.LastIndex(inv.URL, "/")+1:]
	path := "/v1/accept/" + token

	rec = e.do(httptest.NewRequest(http.MethodGet, path, nil), e.adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session_active", errorCode(t, rec))

	form := url.Values{
		"username":         {"bob"},
		"email":            {"bob@x.com"},
		"password1":        {"s3cret-pass"},
		"password2":        {"s3cret-pass"},
		"invitation_token": {token},
	}
	rec = e.do(e.form(path, form), e.adminToken)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "session_active", errorCode(t, rec))

	_, err := e.store.Users().GetUserByUsername(context.Background(), "bob")
	require.Error(t, err, "no account is created for a signed-in caller")

	rec = e.do(e.form(path, form), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAccept_UnknownToken(t *testing.T) {
	e := newEnv(t)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/v1/accept/00000000-0000-4000-8000-000000000000", nil), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_invitation", errorCode(t, rec))
}

func TestSuperuserOnlyEndpoints(t *testing.T) {
	e := newEnv(t)
	e.createUser("bob", "bob-password", false)
	bob := e.login("bob", "bob-password")

	rec := e.json(http.MethodPost, "/v1/invitations", bob, shttp.IssueInvitationRequest{Email: "x@x.com"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.json(http.MethodPost, "/v1/projects", bob, shttp.CreateProjectRequest{Name: "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.json(http.MethodGet, "/v1/admin/blob-deletions", bob, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.json(http.MethodGet, "/v1/users", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []shttp.UserResponse
	decode(t, rec, &users)
	assert.Len(t, users, 2)
}

func TestProjectsAndFiles(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser("alice", "alice-password", false)
	e.createUser("carol", "carol-password", false)
	aliceToken := e.login("alice", "alice-password")
	carolToken := e.login("carol", "carol-password")

	// Project with alice as member
	rec := e.json(http.MethodPost, "/v1/projects", e.adminToken, shttp.CreateProjectRequest{Name: "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var project shttp.ProjectResponse
	decode(t, rec, &project)

	rec = e.json(http.MethodPost, "/v1/projects/"+project.ID+"/members", e.adminToken,
		shttp.AddMembersRequest{UserIDs: []string{alice.ID, alice.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	var added shttp.AddMembersResponse
	decode(t, rec, &added)
	assert.Equal(t, 1, added.Added)

	rec = e.json(http.MethodGet, "/v1/projects/"+project.ID+"/members", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []shttp.MemberResponse
	decode(t, rec, &members)
	assert.Len(t, members, 2)

	// The creator stays.
	rec = e.json(http.MethodDelete, "/v1/projects/"+project.ID+"/members/"+e.admin.ID, e.adminToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "cannot_remove_creator", errorCode(t, rec))

	// Alice uploads, carol is refused
	rec = e.upload(aliceToken, project.ID, "plan.txt", "the plan")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var file shttp.FileResponse
	decode(t, rec, &file)
	assert.Equal(t, "Title plan.txt", file.Title)
	assert.Equal(t, int64(len("the plan")), file.Size)

	rec = e.upload(carolToken, project.ID, "sneaky.txt", "x")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_a_member", errorCode(t, rec))

	rec = e.json(http.MethodGet, "/v1/projects/"+project.ID+"/files", carolToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.json(http.MethodGet, "/v1/projects/"+project.ID+"/files", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var files []shttp.FileResponse
	decode(t, rec, &files)
	require.Len(t, files, 1)
	assert.Equal(t, file.ID, files[0].ID)

	rec = e.json(http.MethodGet, "/v1/files", aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &files)
	assert.Len(t, files, 1)

	// Only the owner or a superuser deletes.
	rec = e.json(http.MethodDelete, "/v1/files/"+file.ID, carolToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.json(http.MethodDelete, "/v1/files/"+file.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted shttp.DeleteResponse
	decode(t, rec, &deleted)
	assert.Equal(t, 1, deleted.FilesDeleted)
	assert.Empty(t, deleted.Warnings)

	rec = e.json(http.MethodGet, "/v1/files/"+file.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateProject(t *testing.T) {
	e := newEnv(t)
	alice := e.createUser("alice", "alice-password", false)
	aliceToken := e.login("alice", "alice-password")

	rec := e.json(http.MethodPost, "/v1/projects", e.adminToken, shttp.CreateProjectRequest{Name: "Launch", Description: "v1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project shttp.ProjectResponse
	decode(t, rec, &project)

	rec = e.json(http.MethodPost, "/v1/projects/"+project.ID+"/members", e.adminToken,
		shttp.AddMembersRequest{UserIDs: []string{alice.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.json(http.MethodPatch, "/v1/projects/"+project.ID, e.adminToken, map[string]string{"name": "Relaunch"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated shttp.ProjectResponse
	decode(t, rec, &updated)
	assert.Equal(t, "Relaunch", updated.Name)
	assert.Equal(t, "v1", updated.Description, "omitted fields are kept")

	tests := []struct {
		name  string
		token string
		body  any
		code  int
	}{
		{"member cannot edit", aliceToken, map[string]string{"name": "Mine"}, http.StatusForbidden},
		{"blank name", e.adminToken, map[string]string{"name": " "}, http.StatusBadRequest},
		{"bad json", e.adminToken, "not an object", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.json(http.MethodPatch, "/v1/projects/"+project.ID, tt.token, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	rec = e.json(http.MethodPatch, "/v1/projects/"+idx.New().String(), e.adminToken, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.json(http.MethodGet, "/v1/projects/"+project.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &updated)
	assert.Equal(t, "Relaunch", updated.Name)
}

// readCounter records how much of a request body a handler consumed.
type readCounter struct {
	r io.Reader
	n int64
}

func (c *readCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestUpload_OutsiderBodyIsNotRead(t *testing.T) {
	e := newEnv(t)
	e.createUser("carol", "carol-password", false)
	carolToken := e.login("carol", "carol-password")

	rec := e.json(http.MethodPost, "/v1/projects", e.adminToken, shttp.CreateProjectRequest{Name: "Private"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project shttp.ProjectResponse
	decode(t, rec, &project)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "big.bin")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("x"), 1<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	body := &readCounter{r: &buf}
	req := httptest.NewRequest(http.MethodPost, "/v1/projects/"+project.ID+"/files", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = e.do(req, carolToken)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not_a_member", errorCode(t, rec))
	assert.Zero(t, body.n)
	assert.Empty(t, e.blobs.Keys())
}

func TestDeleteProject_ReportsStorageWarnings(t *testing.T) {
	e := newEnv(t)

	rec := e.json(http.MethodPost, "/v1/projects", e.adminToken, shttp.CreateProjectRequest{Name: "Doomed"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var project shttp.ProjectResponse
	decode(t, rec, &project)

	for _, name := range []string{"a.txt", "b.txt"} {
		rec = e.upload(e.adminToken, project.ID, name, name)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	e.blobs.FailAllDeletes(true)

	rec = e.json(http.MethodDelete, "/v1/projects/"+project.ID, e.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var deleted shttp.DeleteResponse
	decode(t, rec, &deleted)
	assert.Equal(t, 2, deleted.FilesDeleted)
	assert.Equal(t, 1, deleted.MembershipsDeleted)
	assert.Len(t, deleted.Warnings, 2)

	rec = e.json(http.MethodGet, "/v1/projects/"+project.ID, e.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.json(http.MethodGet, "/v1/admin/blob-deletions", e.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []shttp.BlobDeletionResponse
	decode(t, rec, &pending)
	assert.Len(t, pending, 2)
}
