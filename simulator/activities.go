package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"inkframe/internal/models"

	"github.com/google/uuid"
)

func (s *Simulator) SimulateActivities(ctx context.Context) error {
	log.Printf("Starting activities simulation...")

	// Comments and edits wait until enough posts exist to act on
	postsAvailable := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulatePosts(ctx, postsAvailable)
	}()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.stats.mu.RLock()
				if s.stats.TotalPosts >= 10 {
					s.stats.mu.RUnlock()
					close(postsAvailable)
					return
				}
				s.stats.mu.RUnlock()
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-postsAvailable:
			log.Printf("Starting comments after posts available...")
			s.simulateComments(ctx)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			return
		case <-postsAvailable:
			log.Printf("Starting edits after posts available...")
			s.simulateEdits(ctx)
		}
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) simulatePosts(ctx context.Context, postsAvailable chan struct{}) {
	log.Printf("Starting post simulation...")

	tickInterval := 500 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	const numWorkers = 5
	postJobs := make(chan *SimulatedUser, s.config.NumUsers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for user := range postJobs {
				if !user.SignedIn {
					continue
				}

				if rand.Float64() < (s.config.PostFrequency/3600.0)/2.0 {
					category := s.randomCategory()
					postData := map[string]interface{}{
						"title":    fmt.Sprintf("Post by %s at %d", user.Username, time.Now().Unix()),
						"content":  fmt.Sprintf("Written by %s on %s", user.Username, time.Now().Format(time.RFC3339)),
						"category": category,
					}

					resp, _, err := s.makeRequest("POST", "/posts", user.Token, postData)
					if err != nil {
						log.Printf("Debug: Worker %d failed to create post: %v", workerID, err)
						continue
					}

					var post models.Post
					if err := json.Unmarshal(resp, &post); err != nil {
						log.Printf("Debug: Error parsing post response: %v", err)
						continue
					}

					s.mu.Lock()
					user.Posts = append(user.Posts, post.ID)
					s.mu.Unlock()

					s.stats.mu.Lock()
					s.stats.TotalPosts++
					postCount := s.stats.TotalPosts
					s.stats.mu.Unlock()

					log.Printf("Created %s post by user %s (Total: %d)", category, user.Username, postCount)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(postJobs)
			wg.Wait()
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, user := range s.users {
				if user.SignedIn {
					select {
					case postJobs <- user:
					default: // Don't block if channel is full
					}
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Simulator) simulateComments(ctx context.Context) {
	log.Printf("Starting comment simulation...")

	tickInterval := 500 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	const numWorkers = 5
	commentJobs := make(chan *SimulatedUser, s.config.NumUsers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for user := range commentJobs {
				if !user.SignedIn {
					continue
				}

				if rand.Float64() < (s.config.CommentFrequency/3600.0)/2.0 {
					postID, err := s.getRandomPost(user)
					if err != nil {
						log.Printf("Debug: Worker %d failed to find a post: %v", workerID, err)
						continue
					}

					data := map[string]interface{}{
						"content": fmt.Sprintf("Comment from %s at %s", user.Username, time.Now().Format(time.RFC3339)),
					}

					resp, _, err := s.makeRequest("POST",
						fmt.Sprintf("/posts/%s/comments", postID), user.Token, data)
					if err != nil {
						log.Printf("Debug: Worker %d failed to create comment: %v", workerID, err)
						continue
					}

					var comment models.Comment
					if err := json.Unmarshal(resp, &comment); err != nil {
						log.Printf("Debug: Error parsing comment response: %v", err)
						continue
					}

					s.mu.Lock()
					user.Comments = append(user.Comments, comment.ID)
					s.mu.Unlock()

					s.stats.mu.Lock()
					s.stats.TotalComments++
					commentCount := s.stats.TotalComments
					s.stats.mu.Unlock()
					log.Printf("Created comment by user %s (Total: %d)", user.Username, commentCount)
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(commentJobs)
			wg.Wait()
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, user := range s.users {
				if user.SignedIn {
					select {
					case commentJobs <- user:
					default: // Don't block if channel is full
					}
				}
			}
			s.mu.RUnlock()
		}
	}
}

// simulateEdits revises and occasionally removes the user's own posts
// and comments, exercising the ownership checks from the author's side.
func (s *Simulator) simulateEdits(ctx context.Context) {
	log.Printf("Starting edit simulation...")

	tickInterval := 500 * time.Millisecond
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	const numWorkers = 5
	editJobs := make(chan *SimulatedUser, s.config.NumUsers)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for user := range editJobs {
				if !user.SignedIn {
					continue
				}

				if rand.Float64() < (s.config.EditFrequency/3600.0)/2.0 {
					if rand.Float64() < 0.5 {
						s.editOwnComment(user, workerID)
					} else {
						s.editOrDeleteOwnPost(user, workerID)
					}
				}
			}
		}(i)
	}

	for {
		select {
		case <-ctx.Done():
			close(editJobs)
			wg.Wait()
			return
		case <-ticker.C:
			s.mu.RLock()
			for _, user := range s.users {
				if user.SignedIn {
					select {
					case editJobs <- user:
					default:
					}
				}
			}
			s.mu.RUnlock()
		}
	}
}

func (s *Simulator) editOwnComment(user *SimulatedUser, workerID int) {
	s.mu.RLock()
	if len(user.Comments) == 0 {
		s.mu.RUnlock()
		return
	}
	commentID := user.Comments[rand.Intn(len(user.Comments))]
	s.mu.RUnlock()

	data := map[string]interface{}{
		"content": fmt.Sprintf("Edited by %s at %s", user.Username, time.Now().Format(time.RFC3339)),
	}

	_, status, err := s.makeRequest("PUT",
		fmt.Sprintf("/comments/%s", commentID), user.Token, data)
	if err != nil && status != http.StatusNotFound {
		log.Printf("Debug: Worker %d failed to edit comment: %v", workerID, err)
		return
	}

	s.stats.mu.Lock()
	s.stats.TotalEdits++
	s.stats.mu.Unlock()
}

func (s *Simulator) editOrDeleteOwnPost(user *SimulatedUser, workerID int) {
	s.mu.RLock()
	if len(user.Posts) == 0 {
		s.mu.RUnlock()
		return
	}
	idx := rand.Intn(len(user.Posts))
	postID := user.Posts[idx]
	s.mu.RUnlock()

	// Mostly revise, occasionally take the post down
	if rand.Float64() < 0.8 {
		data := map[string]interface{}{
			"title":    fmt.Sprintf("Revised post by %s", user.Username),
			"content":  fmt.Sprintf("Revised on %s", time.Now().Format(time.RFC3339)),
			"category": s.randomCategory(),
		}
		_, status, err := s.makeRequest("PUT",
			fmt.Sprintf("/posts/%s", postID), user.Token, data)
		if err != nil && status != http.StatusNotFound {
			log.Printf("Debug: Worker %d failed to edit post: %v", workerID, err)
			return
		}
	} else {
		_, _, err := s.makeRequest("DELETE",
			fmt.Sprintf("/posts/%s", postID), user.Token, nil)
		if err != nil {
			log.Printf("Debug: Worker %d failed to delete post: %v", workerID, err)
			return
		}
		s.mu.Lock()
		user.Posts = append(user.Posts[:idx], user.Posts[idx+1:]...)
		s.mu.Unlock()
	}

	s.stats.mu.Lock()
	s.stats.TotalEdits++
	s.stats.mu.Unlock()
}

// getRandomPost browses the listing the way a reader would: a random
// category filter some of the time, a random page, then a random post
// from the page that comes back.
func (s *Simulator) getRandomPost(user *SimulatedUser) (uuid.UUID, error) {
	endpoint := fmt.Sprintf("/posts?page=%d", rand.Intn(3)+1)
	if rand.Float64() < 0.5 {
		endpoint += "&categories=" + s.randomCategory()
	}

	resp, _, err := s.makeRequest("GET", endpoint, user.Token, nil)
	if err != nil {
		return uuid.Nil, err
	}

	var page struct {
		Items []models.Post `json:"items"`
	}
	if err := json.Unmarshal(resp, &page); err != nil {
		return uuid.Nil, fmt.Errorf("failed to parse listing: %v", err)
	}
	if len(page.Items) == 0 {
		return uuid.Nil, fmt.Errorf("no posts on page")
	}

	return page.Items[rand.Intn(len(page.Items))].ID, nil
}
