package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"inkframe/internal/actions"
	"inkframe/internal/gateway"
	"inkframe/internal/middleware"
	"inkframe/internal/models"
	"inkframe/internal/state"
	"inkframe/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory RecordStore for exercising the handlers
// end to end without MongoDB.
type memStore struct {
	mu       sync.Mutex
	posts    map[uuid.UUID]*models.Post
	comments map[uuid.UUID]*models.Comment
	profiles map[uuid.UUID]*models.Profile
}

func newMemStore() *memStore {
	return &memStore{
		posts:    make(map[uuid.UUID]*models.Post),
		comments: make(map[uuid.UUID]*models.Comment),
		profiles: make(map[uuid.UUID]*models.Profile),
	}
}

func (m *memStore) InsertPost(_ context.Context, post *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *post
	m.posts[post.ID] = &copied
	return post, nil
}

func (m *memStore) SelectPosts(_ context.Context, q gateway.PostQuery) (*gateway.PostPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*models.Post, 0)
	for _, p := range m.posts {
		if len(q.Categories) > 0 {
			match := false
			for _, c := range q.Categories {
				if p.Category == c {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		items = append(items, p)
	}
	total := int64(len(items))
	start := (q.Page - 1) * q.PageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + q.PageSize
	if end > len(items) {
		end = len(items)
	}
	return &gateway.PostPage{Items: items[start:end], Total: total}, nil
}

func (m *memStore) SelectPostsByAuthor(_ context.Context, authorID uuid.UUID) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*models.Post, 0)
	for _, p := range m.posts {
		if p.AuthorID != nil && *p.AuthorID == authorID {
			items = append(items, p)
		}
	}
	return items, nil
}

func (m *memStore) GetPost(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, utils.NewNotFoundError("Post")
	}
	copied := *post
	return &copied, nil
}

func (m *memStore) UpdatePost(_ context.Context, id uuid.UUID, row gateway.PostRow) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return nil, utils.NewNotFoundError("Post")
	}
	post.Title = row.Title
	post.Content = row.Content
	post.Category = row.Category
	post.ImageURL = row.ImageURL
	copied := *post
	return &copied, nil
}

func (m *memStore) DeletePost(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *memStore) DeletePostsByAuthor(_ context.Context, authorID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.AuthorID != nil && *p.AuthorID == authorID {
			for cid, c := range m.comments {
				if c.PostID == id {
					delete(m.comments, cid)
				}
			}
			delete(m.posts, id)
		}
	}
	return nil
}

func (m *memStore) SelectCommentsByPost(_ context.Context, postID uuid.UUID) ([]*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]*models.Comment, 0)
	for _, c := range m.comments {
		if c.PostID == postID {
			items = append(items, c)
		}
	}
	return items, nil
}

func (m *memStore) GetComment(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return nil, utils.NewNotFoundError("Comment")
	}
	copied := *comment
	return &copied, nil
}

func (m *memStore) InsertComment(_ context.Context, comment *models.Comment) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *comment
	m.comments[comment.ID] = &copied
	return comment, nil
}

func (m *memStore) UpdateComment(_ context.Context, id uuid.UUID, patch gateway.CommentPatch) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return nil, utils.NewNotFoundError("Comment")
	}
	comment.Content = patch.Content
	if patch.ImageURL.Present {
		comment.ImageURL = patch.ImageURL.Value
	}
	now := time.Now().UTC()
	comment.UpdatedAt = &now
	copied := *comment
	return &copied, nil
}

func (m *memStore) DeleteComment(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.comments, id)
	return nil
}

func (m *memStore) InsertProfile(_ context.Context, profile *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Username, profile.Username) {
			return nil, utils.NewAppError(utils.ErrUsernameTaken, "Username already taken", nil)
		}
	}
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *memStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.profiles[id]
	if !ok {
		return nil, utils.NewNotFoundError("Profile")
	}
	return profile, nil
}

func (m *memStore) GetProfileByUsernameFold(_ context.Context, username string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if strings.EqualFold(p.Username, username) {
			return p, nil
		}
	}
	return nil, utils.NewNotFoundError("Profile")
}

func (m *memStore) DeleteProfile(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.profiles, id)
	return nil
}

// memIdentities is an in-memory gateway.IdentityStore.
type memIdentities struct {
	mu      sync.Mutex
	byEmail map[string]*models.Identity
	byID    map[uuid.UUID]*models.Identity
}

func newMemIdentities() *memIdentities {
	return &memIdentities{
		byEmail: make(map[string]*models.Identity),
		byID:    make(map[uuid.UUID]*models.Identity),
	}
}

func (m *memIdentities) InsertIdentity(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[identity.Email]; exists {
		return nil, utils.NewAppError(utils.ErrEmailRegistered, "Email already registered", nil)
	}
	m.byEmail[identity.Email] = identity
	m.byID[identity.ID] = identity
	return identity, nil
}

func (m *memIdentities) GetIdentityByEmail(_ context.Context, email string) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byEmail[email]
	if !ok {
		return nil, utils.NewNotFoundError("Identity")
	}
	return identity, nil
}

func (m *memIdentities) GetIdentity(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.byID[id]
	if !ok {
		return nil, utils.NewNotFoundError("Identity")
	}
	return identity, nil
}

func (m *memIdentities) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// memObjects is an in-memory ObjectStore.
type memObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Upload(_ context.Context, bucket, path string, r io.Reader, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := bucket + "/" + path
	if _, exists := m.objects[key]; exists {
		return utils.NewAppError(utils.ErrDuplicate, "Object already exists: "+key, nil)
	}
	m.objects[key] = data
	return nil
}

func (m *memObjects) PublicURL(bucket, path string) string {
	return "http://localhost:8080/media/" + bucket + "/" + path
}

type testEnv struct {
	handler    http.Handler
	store      *memStore
	identities *memIdentities
	objects    *memObjects
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	identities := newMemIdentities()
	objects := newMemObjects()
	auth := gateway.NewAuthService(identities, "test-secret", time.Hour)
	metrics := utils.NewMetricsCollector()

	system := actor.NewActorSystem()
	postPID := system.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return state.NewPostListActor(state.DefaultPageSize)
	}))
	commentPID := system.Root.Spawn(actor.PropsFromProducer(state.NewCommentListActor))

	server := NewServer(
		store,
		auth,
		actions.NewPostActions(store, system.Root, postPID, metrics),
		actions.NewCommentActions(store, system.Root, commentPID, metrics),
		nil,
		objects,
		nil,
		metrics,
	)

	return &testEnv{
		handler:    server.Handler(middleware.DefaultCORSConfig([]string{"*"})),
		store:      store,
		identities: identities,
		objects:    objects,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its login token and user ID.
func (e *testEnv) register(t *testing.T, username, email string) (string, uuid.UUID) {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	userID, err := uuid.Parse(resp.UserID)
	require.NoError(t, err)
	return resp.Token, userID
}

func TestRegisterRejectsTakenUsernameBeforeIdentityCreation(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Wren", "wren@example.com")

	// Same name, different case, different email
	rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "wren",
		"email":    "other@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already taken")

	// The check ran before sign-up, so no orphaned identity exists
	assert.Equal(t, 1, env.identities.count())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "wren", "wren@example.com")

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    "wren@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/posts"},
		{http.MethodPost, "/posts"},
		{http.MethodGet, "/auth/session"},
		{http.MethodPost, "/upload?bucket=blog-images"},
	} {
		rec := env.do(t, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route.path)
	}

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionEndpointReturnsCaller(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "wren", "wren@example.com")

	rec := env.do(t, http.MethodGet, "/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		User    models.Identity `json:"user"`
		Profile models.Profile  `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, userID, payload.User.ID)
	assert.Equal(t, "wren", payload.Profile.Username)

	// Logging out invalidates the session
	rec = env.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodGet, "/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostOwnership(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.register(t, "wren", "wren@example.com")
	other, _ := env.register(t, "finch", "finch@example.com")

	rec := env.do(t, http.MethodPost, "/posts", author, map[string]interface{}{
		"title":     "a trip north",
		"content":   "notes from the road",
		"category":  "travel",
		"image_url": "http://localhost:8080/media/blog-images/a.jpg",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "wren", post.AuthorUsername)

	// Someone else cannot edit or delete it
	edit := map[string]interface{}{"title": "x", "content": "y", "category": "travel"}
	rec = env.do(t, http.MethodPut, "/posts/"+post.ID.String(), other, edit)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(t, http.MethodDelete, "/posts/"+post.ID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An edit without image_url keeps the stored image
	rec = env.do(t, http.MethodPut, "/posts/"+post.ID.String(), author, map[string]interface{}{
		"title":    "a trip north, revised",
		"content":  "notes from the road",
		"category": "travel",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.NotNil(t, updated.ImageURL)

	// An explicit null clears it
	rec = env.do(t, http.MethodPut, "/posts/"+post.ID.String(), author, json.RawMessage(
		`{"title":"a trip north","content":"notes","category":"travel","image_url":null}`,
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = models.Post{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Nil(t, updated.ImageURL)

	// Author deletes; a repeat delete still succeeds
	rec = env.do(t, http.MethodDelete, "/posts/"+post.ID.String(), author, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/posts/"+post.ID.String(), author, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPostsPagination(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "wren", "wren@example.com")

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/posts", token, map[string]string{
			"title":    fmt.Sprintf("post %d", i),
			"content":  "body",
			"category": "food",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/posts?page=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page postPageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Items, state.DefaultPageSize)
	assert.True(t, page.HasNextPage)

	rec = env.do(t, http.MethodGet, "/posts?page=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasNextPage)

	rec = env.do(t, http.MethodGet, "/posts?categories=school", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, int64(0), page.Total)
}

func TestCommentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	author, _ := env.register(t, "wren", "wren@example.com")
	other, _ := env.register(t, "finch", "finch@example.com")

	rec := env.do(t, http.MethodPost, "/posts", author, map[string]string{
		"title": "soup", "content": "recipe", "category": "food",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))

	// Commenting on a missing post fails
	rec = env.do(t, http.MethodPost, "/posts/"+uuid.NewString()+"/comments", other, map[string]string{
		"content": "where?",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/posts/"+post.ID.String()+"/comments", other, map[string]string{
		"content": "looks great",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var comment models.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	assert.Equal(t, "finch", comment.AuthorUsername)
	assert.Nil(t, comment.UpdatedAt)

	// The post's author still cannot edit someone else's comment
	rec = env.do(t, http.MethodPut, "/comments/"+comment.ID.String(), author, map[string]string{
		"content": "edited",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPut, "/comments/"+comment.ID.String(), other, map[string]string{
		"content": "looks amazing",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comment))
	assert.Equal(t, "looks amazing", comment.Content)
	assert.NotNil(t, comment.UpdatedAt)

	rec = env.do(t, http.MethodDelete, "/comments/"+comment.ID.String(), other, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/comments/"+comment.ID.String(), other, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDeletePostCascadesComments(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "wren", "wren@example.com")

	rec := env.do(t, http.MethodPost, "/posts", token, map[string]string{
		"title": "soup", "content": "recipe", "category": "food",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var post models.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))

	rec = env.do(t, http.MethodPost, "/posts/"+post.ID.String()+"/comments", token, map[string]string{
		"content": "note to self",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodDelete, "/posts/"+post.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	assert.Empty(t, env.store.comments)
}

func TestProfileTeardown(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "wren", "wren@example.com")
	other, _ := env.register(t, "finch", "finch@example.com")

	rec := env.do(t, http.MethodPost, "/posts", token, map[string]string{
		"title": "soup", "content": "recipe", "category": "food",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Only the owner may delete the account
	rec = env.do(t, http.MethodDelete, "/profiles/"+userID.String(), other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/profiles/"+userID.String(), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Profile, posts and session are all gone
	rec = env.do(t, http.MethodGet, "/profiles/"+userID.String(), other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(t, http.MethodGet, "/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	assert.Empty(t, env.store.posts)
}

func TestUploadStoresUnderCallerNamespace(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.register(t, "wren", "wren@example.com")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="image"; filename="cat.png"`},
		"Content-Type":        {"image/png"},
	})
	require.NoError(t, err)
	part.Write([]byte("not really a png"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload?bucket=comment-images", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.Path, userID.String()+"/"))
	assert.True(t, strings.HasSuffix(resp.Path, ".png"))
	assert.Contains(t, resp.URL, "/media/comment-images/")

	// Unknown buckets are rejected
	req = httptest.NewRequest(http.MethodPost, "/upload?bucket=secrets", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
