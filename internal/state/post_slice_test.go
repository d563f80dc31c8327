package state

import (
	"testing"
	"time"

	"inkframe/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnPostList(t *testing.T) (*actor.ActorSystem, *actor.PID) {
	t.Helper()
	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewPostListActor(DefaultPageSize)
	})
	return system, system.Root.Spawn(props)
}

func postState(t *testing.T, system *actor.ActorSystem, pid *actor.PID) *PostListState {
	t.Helper()
	future := system.Root.RequestFuture(pid, &GetPostStateMsg{}, 5*time.Second)
	result, err := future.Result()
	require.NoError(t, err)
	return result.(*PostListState)
}

func send(system *actor.ActorSystem, pid *actor.PID, msg interface{}) {
	system.Root.Send(pid, msg)
}

func testPost(title string) *models.Post {
	authorID := uuid.New()
	return &models.Post{
		ID:             uuid.New(),
		Title:          title,
		Content:        "content of " + title,
		Category:       models.CategoryTravel,
		CreatedAt:      time.Now(),
		AuthorID:       &authorID,
		AuthorUsername: "wren",
	}
}

func TestToggleCategorySingleSelect(t *testing.T) {
	system, pid := spawnPostList(t)

	// Any sequence of toggles leaves the selection empty or a singleton
	send(system, pid, &ToggleCategoryMsg{Category: models.CategoryFood})
	st := postState(t, system, pid)
	assert.Equal(t, []models.Category{models.CategoryFood}, st.SelectedCategories)

	// Selecting a different category replaces, never accumulates
	send(system, pid, &ToggleCategoryMsg{Category: models.CategorySchool})
	st = postState(t, system, pid)
	assert.Equal(t, []models.Category{models.CategorySchool}, st.SelectedCategories)

	// Selecting the selected category clears the selection entirely
	send(system, pid, &ToggleCategoryMsg{Category: models.CategorySchool})
	st = postState(t, system, pid)
	assert.Empty(t, st.SelectedCategories)
}

func TestFilterChangesResetPage(t *testing.T) {
	system, pid := spawnPostList(t)

	send(system, pid, &SetPageMsg{Page: 3})
	st := postState(t, system, pid)
	assert.Equal(t, 3, st.Page)

	send(system, pid, &ToggleCategoryMsg{Category: models.CategoryTravel})
	st = postState(t, system, pid)
	assert.Equal(t, 1, st.Page)

	send(system, pid, &SetPageMsg{Page: 7})
	send(system, pid, &ClearCategoriesMsg{})
	st = postState(t, system, pid)
	assert.Equal(t, 1, st.Page)
	assert.Empty(t, st.SelectedCategories)
}

func TestPostsFetchedReplacesWholesale(t *testing.T) {
	system, pid := spawnPostList(t)

	stale := testPost("stale")
	send(system, pid, &PostCreatedMsg{Post: stale})

	first := testPost("first")
	second := testPost("second")
	send(system, pid, &PostsFetchedMsg{Items: []*models.Post{first, second}, Total: 12})

	st := postState(t, system, pid)
	require.Len(t, st.Posts, 2)
	assert.Equal(t, first.ID, st.Posts[0].ID)
	assert.Equal(t, second.ID, st.Posts[1].ID)
	assert.Equal(t, int64(12), st.Total)
}

func TestCreateThenDeleteRestoresListing(t *testing.T) {
	system, pid := spawnPostList(t)

	existing := []*models.Post{testPost("a"), testPost("b")}
	send(system, pid, &PostsFetchedMsg{Items: existing, Total: 2})

	created := testPost("c")
	send(system, pid, &PostCreatedMsg{Post: created})

	st := postState(t, system, pid)
	require.Len(t, st.Posts, 3)
	assert.Equal(t, created.ID, st.Posts[0].ID)
	// Create is optimistic: total is untouched until the next fetch
	assert.Equal(t, int64(2), st.Total)

	send(system, pid, &PostDeletedMsg{PostID: created.ID})
	st = postState(t, system, pid)
	require.Len(t, st.Posts, 2)
	assert.Equal(t, existing[0].ID, st.Posts[0].ID)
	assert.Equal(t, existing[1].ID, st.Posts[1].ID)
}

func TestPostUpdatedReplacesInPlace(t *testing.T) {
	system, pid := spawnPostList(t)

	posts := []*models.Post{testPost("a"), testPost("b"), testPost("c")}
	send(system, pid, &PostsFetchedMsg{Items: posts, Total: 3})

	edited := *posts[1]
	edited.Title = "b, edited"
	send(system, pid, &PostUpdatedMsg{Post: &edited})

	st := postState(t, system, pid)
	require.Len(t, st.Posts, 3)
	assert.Equal(t, posts[0].ID, st.Posts[0].ID)
	assert.Equal(t, "b, edited", st.Posts[1].Title)
	assert.Equal(t, posts[2].ID, st.Posts[2].ID)

	// Updating a post not on the current page is a no-op
	ghost := testPost("ghost")
	send(system, pid, &PostUpdatedMsg{Post: ghost})
	st = postState(t, system, pid)
	require.Len(t, st.Posts, 3)
	for _, p := range st.Posts {
		assert.NotEqual(t, ghost.ID, p.ID)
	}
}

func TestHasNextPageBoundaries(t *testing.T) {
	st := &PostListState{Page: 1, PageSize: 4, Total: 10}
	assert.True(t, st.HasNextPage())

	st.Page = 2
	assert.True(t, st.HasNextPage())

	st.Page = 3
	assert.False(t, st.HasNextPage())

	// Exact boundary: page*pageSize == total means no next page
	st = &PostListState{Page: 2, PageSize: 5, Total: 10}
	assert.False(t, st.HasNextPage())

	st = &PostListState{Page: 1, PageSize: 4, Total: 0}
	assert.False(t, st.HasNextPage())
}

func TestSetPageStoresVerbatim(t *testing.T) {
	system, pid := spawnPostList(t)

	// No clamping at this layer, even for out-of-range pages
	send(system, pid, &SetPageMsg{Page: 99})
	st := postState(t, system, pid)
	assert.Equal(t, 99, st.Page)
}
