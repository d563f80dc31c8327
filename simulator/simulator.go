// Package simulator drives synthetic traffic against a running
// inkframe server: registered users publishing posts, browsing by
// category, commenting and editing, with sessions churning the way
// real readers come and go.
package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SimConfig struct {
	NumUsers         int
	SimulationTime   time.Duration
	PostFrequency    float64 // posts per user per hour
	CommentFrequency float64 // comments per user per hour
	EditFrequency    float64 // edits/deletes per user per hour
	SignOutRate      float64 // per-second probability a signed-in user signs out
	SignInRate       float64 // per-second probability a signed-out user signs back in
	ZipfS            float64 // skew of category popularity
	ServerURL        string
}

type SimulationStats struct {
	mu               sync.RWMutex
	StartTime        time.Time
	TotalRequests    int64
	SuccessRequests  int64
	FailedRequests   int64
	AverageLatency   time.Duration
	TotalPosts       int
	TotalComments    int
	TotalEdits       int
	RequestLatencies []time.Duration
}

// SimulatedUser is one registered account and its live session.
type SimulatedUser struct {
	ID       uuid.UUID
	Username string
	Email    string
	Token    string
	SignedIn bool
	Posts    []uuid.UUID // posts created by this user
	Comments []uuid.UUID // comments made by this user
}

type Simulator struct {
	config     SimConfig
	stats      *SimulationStats
	users      []*SimulatedUser
	categories []string
	client     *http.Client
	mu         sync.RWMutex
}

func NewSimulator(config SimConfig) *Simulator {
	return &Simulator{
		config:     config,
		categories: []string{"school", "travel", "food", "others"},
		stats: &SimulationStats{
			StartTime:        time.Now(),
			RequestLatencies: make([]time.Duration, 0),
		},
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *Simulator) Run(ctx context.Context) error {
	log.Printf("Starting simulation...")

	if err := s.initialize(ctx); err != nil {
		return fmt.Errorf("initialization failed: %v", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.SimulateActivities(ctx); err != nil {
			log.Printf("Activities simulation error: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.simulateSessionChurn(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.collectMetrics(ctx)
	}()

	wg.Wait()
	return nil
}

func (s *Simulator) initialize(ctx context.Context) error {
	log.Printf("Creating %d accounts...", s.config.NumUsers)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make([]*SimulatedUser, 0, s.config.NumUsers)

	numWorkers := 5
	userJobs := make(chan int, numWorkers)
	results := make(chan *SimulatedUser, numWorkers)

	var wg sync.WaitGroup

	// Shared across workers so the server sees a steady signup rate
	rateLimiter := time.NewTicker(200 * time.Millisecond)
	defer rateLimiter.Stop()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for userNum := range userJobs {
				<-rateLimiter.C

				user := &SimulatedUser{
					Username: fmt.Sprintf("writer_%d", userNum),
					Email:    fmt.Sprintf("writer_%d@test.com", userNum),
					Posts:    make([]uuid.UUID, 0),
					Comments: make([]uuid.UUID, 0),
				}

				var err error
				for retries := 0; retries < 3; retries++ {
					if err = s.registerAndSignIn(ctx, user); err == nil {
						results <- user
						break
					}
					backoff := time.Duration(math.Pow(2, float64(retries))) * time.Second
					log.Printf("Worker %d: Retry %d for user %s after %v delay",
						workerID, retries+1, user.Username, backoff)
					time.Sleep(backoff)
				}

				if err != nil {
					log.Printf("Worker %d: Failed to register user %s after retries: %v",
						workerID, user.Username, err)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < s.config.NumUsers; i++ {
			userJobs <- i
		}
		close(userJobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for user := range results {
		s.users = append(s.users, user)
	}

	log.Printf("Successfully created %d accounts", len(s.users))
	return nil
}

func (s *Simulator) registerAndSignIn(ctx context.Context, user *SimulatedUser) error {
	registerData := map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
		"password": "testpass123",
	}

	// A conflict means a previous run already registered this account;
	// signing in below still works.
	_, status, err := s.makeRequest("POST", "/auth/register", "", registerData)
	if err != nil && status != http.StatusConflict {
		return fmt.Errorf("failed to register user: %v", err)
	}

	return s.signIn(user)
}

func (s *Simulator) signIn(user *SimulatedUser) error {
	loginData := map[string]interface{}{
		"email":    user.Email,
		"password": "testpass123",
	}

	resp, _, err := s.makeRequest("POST", "/auth/login", "", loginData)
	if err != nil {
		return fmt.Errorf("failed to sign in user %s: %v", user.Username, err)
	}

	var result struct {
		Token  string `json:"token"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return fmt.Errorf("failed to parse login response: %v", err)
	}

	userID, err := uuid.Parse(result.UserID)
	if err != nil {
		return fmt.Errorf("invalid user ID returned: %v", err)
	}

	user.ID = userID
	user.Token = result.Token
	user.SignedIn = true
	return nil
}

// simulateSessionChurn signs users out and back in over time, so the
// traffic mix always includes fresh logins and revoked tokens.
func (s *Simulator) simulateSessionChurn(ctx context.Context) {
	log.Printf("Starting session churn simulation...")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			for _, user := range s.users {
				if user.SignedIn {
					if rand.Float64() < s.config.SignOutRate {
						s.makeRequest("POST", "/auth/logout", user.Token, nil)
						user.SignedIn = false
						user.Token = ""
					}
				} else {
					if rand.Float64() < s.config.SignInRate {
						if err := s.signIn(user); err != nil {
							log.Printf("Debug: Failed to sign user %s back in: %v", user.Username, err)
						}
					}
				}
			}
			s.mu.Unlock()
		}
	}
}

// makeRequest sends a JSON request, optionally authenticated, and
// records latency. The status code comes back alongside the body so
// callers can tell a conflict from a transport failure.
func (s *Simulator) makeRequest(method, endpoint, token string, data interface{}) ([]byte, int, error) {
	var body []byte
	var err error

	if data != nil {
		body, err = json.Marshal(data)
		if err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequest(method, s.config.ServerURL+endpoint, bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.recordRequestMetrics(start, err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	payload, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		s.recordRequestMetrics(start, readErr)
		return nil, resp.StatusCode, readErr
	}

	if resp.StatusCode >= 400 {
		err = fmt.Errorf("request failed with status: %d", resp.StatusCode)
		s.recordRequestMetrics(start, err)
		return payload, resp.StatusCode, err
	}

	s.recordRequestMetrics(start, nil)
	return payload, resp.StatusCode, nil
}

func (s *Simulator) recordRequestMetrics(start time.Time, err error) {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()

	latency := time.Since(start)
	s.stats.TotalRequests++
	s.stats.RequestLatencies = append(s.stats.RequestLatencies, latency)

	if err != nil {
		s.stats.FailedRequests++
	} else {
		s.stats.SuccessRequests++
	}

	totalLatency := s.stats.AverageLatency * time.Duration(s.stats.TotalRequests-1)
	s.stats.AverageLatency = (totalLatency + latency) / time.Duration(s.stats.TotalRequests)
}

// randomCategory picks a category with Zipf-skewed popularity, so some
// categories see far more traffic than others.
func (s *Simulator) randomCategory() string {
	zipf := rand.NewZipf(rand.New(rand.NewSource(time.Now().UnixNano())),
		s.config.ZipfS, 1, uint64(len(s.categories)-1))
	return s.categories[int(zipf.Uint64())]
}

func (s *Simulator) collectMetrics(ctx context.Context) {
	log.Printf("Starting metrics collection...")
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.stats.mu.RLock()
			elapsed := time.Since(s.stats.StartTime)
			requestRate := float64(s.stats.TotalRequests) / elapsed.Seconds()
			successRate := 0.0
			if s.stats.TotalRequests > 0 {
				successRate = float64(s.stats.SuccessRequests) / float64(s.stats.TotalRequests) * 100
			}

			signedIn := 0
			s.mu.RLock()
			for _, user := range s.users {
				if user.SignedIn {
					signedIn++
				}
			}
			s.mu.RUnlock()

			log.Printf("\nSimulation Metrics (%.1f seconds elapsed):", elapsed.Seconds())
			log.Printf("- Request Rate: %.2f req/sec", requestRate)
			log.Printf("- Success Rate: %.1f%%", successRate)
			log.Printf("- Average Latency: %v", s.stats.AverageLatency)
			log.Printf("- Signed-in Users: %d/%d", signedIn, len(s.users))
			log.Printf("- Total Posts: %d", s.stats.TotalPosts)
			log.Printf("- Total Comments: %d", s.stats.TotalComments)
			log.Printf("- Total Edits: %d", s.stats.TotalEdits)
			log.Printf("- Failed Requests: %d", s.stats.FailedRequests)

			s.stats.mu.RUnlock()
		}
	}
}

// SimulationMetrics holds the metrics of the simulation
type SimulationMetrics struct {
	TotalUsers        int
	SignedInUsers     int
	TotalPosts        int
	TotalComments     int
	TotalEdits        int
	AverageLatency    time.Duration
	ErrorCount        int
	RequestsPerSecond float64
}

// GetMetrics returns the current simulation metrics
func (s *Simulator) GetMetrics() SimulationMetrics {
	s.stats.mu.RLock()
	defer s.stats.mu.RUnlock()

	elapsed := time.Since(s.stats.StartTime)
	requestRate := float64(s.stats.TotalRequests) / elapsed.Seconds()

	signedIn := 0
	s.mu.RLock()
	for _, user := range s.users {
		if user.SignedIn {
			signedIn++
		}
	}
	s.mu.RUnlock()

	return SimulationMetrics{
		TotalUsers:        len(s.users),
		SignedInUsers:     signedIn,
		TotalPosts:        s.stats.TotalPosts,
		TotalComments:     s.stats.TotalComments,
		TotalEdits:        s.stats.TotalEdits,
		AverageLatency:    s.stats.AverageLatency,
		ErrorCount:        int(s.stats.FailedRequests),
		RequestsPerSecond: requestRate,
	}
}
