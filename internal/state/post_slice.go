package state

import (
	"log"

	"inkframe/internal/models"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// DefaultPageSize matches the listing page length the UI renders.
const DefaultPageSize = 4

// Message types for post list state operations
type (
	// ToggleCategoryMsg flips a category filter. Selecting the selected
	// category clears the selection; selecting any other category
	// replaces the whole selection with it. Single-select despite the
	// slice-shaped state: observed behavior, kept on purpose.
	ToggleCategoryMsg struct {
		Category models.Category
	}

	ClearCategoriesMsg struct{}

	// SetPageMsg stores the page verbatim. No bounds clamping here; the
	// view disables out-of-range navigation.
	SetPageMsg struct {
		Page int
	}

	// PostsFetchedMsg replaces the page contents and total wholesale.
	PostsFetchedMsg struct {
		Items []*models.Post
		Total int64
	}

	// PostCreatedMsg prepends the new post locally. No re-fetch, no
	// total adjustment.
	PostCreatedMsg struct {
		Post *models.Post
	}

	// PostUpdatedMsg replaces the matching entry in place. No-op when
	// the post is not on the current page.
	PostUpdatedMsg struct {
		Post *models.Post
	}

	// PostDeletedMsg splices the matching entry out. Total is left
	// alone; the next fetch reconciles.
	PostDeletedMsg struct {
		PostID uuid.UUID
	}

	GetPostStateMsg struct{}
)

// PostListState is an immutable snapshot of the post collection slice.
type PostListState struct {
	Posts              []*models.Post
	SelectedCategories []models.Category
	Page               int
	PageSize           int
	Total              int64
}

// HasNextPage reports whether a later page exists. The boundary
// page*pageSize == total means the current page is the last one.
func (s *PostListState) HasNextPage() bool {
	return int64(s.Page*s.PageSize) < s.Total
}

// PostListActor owns the post collection slice. All mutations flow
// through its mailbox, so no reducer step ever observes another one
// half-applied.
type PostListActor struct {
	posts              []*models.Post
	selectedCategories []models.Category
	page               int
	pageSize           int
	total              int64
}

// NewPostListActor creates a post list actor with an empty listing on
// page 1.
func NewPostListActor(pageSize int) actor.Actor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PostListActor{
		posts:              make([]*models.Post, 0),
		selectedCategories: make([]models.Category, 0),
		page:               1,
		pageSize:           pageSize,
	}
}

// Receive handles incoming messages
func (a *PostListActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		log.Printf("PostListActor started")
	case *actor.Stopping:
		log.Printf("PostListActor stopping")
	case *actor.Stopped:
		log.Printf("PostListActor stopped")

	case *ToggleCategoryMsg:
		a.handleToggleCategory(msg.Category)
		a.respondSnapshot(context)
	case *ClearCategoriesMsg:
		a.selectedCategories = a.selectedCategories[:0]
		a.page = 1
		a.respondSnapshot(context)
	case *SetPageMsg:
		a.page = msg.Page
		a.respondSnapshot(context)
	case *PostsFetchedMsg:
		a.posts = append(a.posts[:0], msg.Items...)
		a.total = msg.Total
		a.respondSnapshot(context)
	case *PostCreatedMsg:
		a.posts = append([]*models.Post{msg.Post}, a.posts...)
		a.respondSnapshot(context)
	case *PostUpdatedMsg:
		for i, p := range a.posts {
			if p.ID == msg.Post.ID {
				a.posts[i] = msg.Post
				break
			}
		}
		a.respondSnapshot(context)
	case *PostDeletedMsg:
		kept := a.posts[:0]
		for _, p := range a.posts {
			if p.ID != msg.PostID {
				kept = append(kept, p)
			}
		}
		a.posts = kept
		a.respondSnapshot(context)
	case *GetPostStateMsg:
		context.Respond(a.snapshot())
	default:
		log.Printf("PostListActor: Unknown message type: %T", msg)
	}
}

func (a *PostListActor) handleToggleCategory(category models.Category) {
	selected := false
	for _, c := range a.selectedCategories {
		if c == category {
			selected = true
			break
		}
	}

	if selected {
		a.selectedCategories = a.selectedCategories[:0]
	} else {
		a.selectedCategories = append(a.selectedCategories[:0], category)
	}
	a.page = 1
}

// respondSnapshot answers reducer messages sent via RequestFuture.
// Fire-and-forget sends have no sender, so nothing is responded.
func (a *PostListActor) respondSnapshot(context actor.Context) {
	if context.Sender() != nil {
		context.Respond(a.snapshot())
	}
}

func (a *PostListActor) snapshot() *PostListState {
	posts := make([]*models.Post, len(a.posts))
	copy(posts, a.posts)

	categories := make([]models.Category, len(a.selectedCategories))
	copy(categories, a.selectedCategories)

	return &PostListState{
		Posts:              posts,
		SelectedCategories: categories,
		Page:               a.page,
		PageSize:           a.pageSize,
		Total:              a.total,
	}
}
