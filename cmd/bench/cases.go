// README: Benchmark cases; environment, migration, HTTP contract, and throughput checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"itinera/internal/modules/itinerary"
	"itinera/internal/types"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name  string
	Focus string
	Run   func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 90 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

// trip builds a request body starting offsetDays from today.
func trip(offsetDays, nights int) map[string]any {
	start := time.Now().AddDate(0, 0, offsetDays)
	return map[string]any{
		"destination":  "Paris, France",
		"startDate":    start.Format(types.DateLayout),
		"endDate":      start.AddDate(0, 0, nights).Format(types.DateLayout),
		"numTravelers": 2,
		"budget":       itinerary.BudgetTiers[1],
		"interests":    []string{"Culture & History", "Food & Dining"},
	}
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name:  "Env: Postgres connect",
			Focus: "DB reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Env: Redis connect",
			Focus: "Redis reachable",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "SKIP", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name:  "Migration: tables exist",
			Focus: "itineraries and generation_usage are present",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "SKIP", Note: "db not configured"}
				}
				for _, t := range []string{"itineraries", "generation_usage"} {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS"}
			},
		},

		httpCase("API: health", http.MethodGet, base+"/health", nil, "", []int{200}),
		httpCase("API: options", http.MethodGet, base+"/api/itineraries/options", nil, "", []int{200}),

		// Authentication
		httpCase("Auth: generate without token -> 401", http.MethodPost, base+"/api/itineraries", trip(7, 3), "", []int{401}),
		httpCase("Auth: generate with bad token -> 401", http.MethodPost, base+"/api/itineraries", trip(7, 3), "not-a-token", []int{401}),
		httpCase("Auth: list without token -> 401", http.MethodGet, base+"/api/itineraries", nil, "", []int{401}),

		// Validation (needs a token so the request gets past authentication)
		r.authed(httpCase("Validate: invalid json -> 400", http.MethodPost, base+"/api/itineraries", "{", r.cfg.Token, []int{400})),
		r.authed(httpCase("Validate: start in past -> 400", http.MethodPost, base+"/api/itineraries", trip(-2, 3), r.cfg.Token, []int{400})),
		r.authed(httpCase("Validate: end before start -> 400", http.MethodPost, base+"/api/itineraries", trip(7, -1), r.cfg.Token, []int{400})),
		r.authed(httpCase("Validate: missing interests -> 400", http.MethodPost, base+"/api/itineraries", map[string]any{
			"destination": "Paris, France",
			"startDate":   time.Now().AddDate(0, 0, 7).Format(types.DateLayout),
			"endDate":     time.Now().AddDate(0, 0, 9).Format(types.DateLayout),
			"budget":      itinerary.BudgetTiers[0],
		}, r.cfg.Token, []int{400})),

		// Reads
		r.authed(httpCase("Read: list own itineraries", http.MethodGet, base+"/api/itineraries?page=1&limit=5", nil, r.cfg.Token, []int{200})),
		r.authed(httpCase("Read: unknown id -> 404", http.MethodGet, base+"/api/itineraries/00000000-0000-4000-8000-000000000000", nil, r.cfg.Token, []int{404})),
		r.authed(httpCase("Read: malformed id -> 400", http.MethodGet, base+"/api/itineraries/abc", nil, r.cfg.Token, []int{400})),
		r.authed(httpCase("Read: quota", http.MethodGet, base+"/api/itineraries/quota", nil, r.cfg.Token, []int{200})),

		// Generation (calls the upstream model)
		{
			Name:  "Generate: Paris 5 days",
			Focus: "end to end generation and persistence",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.Generate || r.cfg.Token == "" {
					return Result{Status: "SKIP", Note: "needs -generate and -token"}
				}
				return generateAndFetch(ctx, r, base)
			},
		},

		// Performance
		{
			Name:  "Perf: list throughput",
			Focus: "read path under concurrent load",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" {
					return Result{Status: "SKIP", Note: "no token"}
				}
				return perfLoad(ctx, r, http.MethodGet, base+"/api/itineraries", nil)
			},
		},
		{
			Name:  "Perf: validation rejection throughput",
			Focus: "authenticate and validate without generating",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.cfg.Token == "" {
					return Result{Status: "SKIP", Note: "no token"}
				}
				return perfLoad(ctx, r, http.MethodPost, base+"/api/itineraries", trip(-2, 3))
			},
		},
	}
}

// authed skips tc when no token is configured.
func (r *Runner) authed(tc TestCase) TestCase {
	run := tc.Run
	tc.Run = func(ctx context.Context, r *Runner) Result {
		if r.cfg.Token == "" {
			return Result{Status: "SKIP", Note: "no token"}
		}
		return run(ctx, r)
	}
	return tc
}

func newRequest(ctx context.Context, method, url string, body any, token string) (*http.Request, error) {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		reader = strings.NewReader(string(raw))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func httpCase(name, method, url string, body any, token string, okStatuses []int) TestCase {
	return TestCase{
		Name:  name,
		Focus: "HTTP API",
		Run: func(ctx context.Context, r *Runner) Result {
			req, err := newRequest(ctx, method, url, body, token)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			start := time.Now()
			resp, err := r.httpc.Do(req)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			latency := time.Since(start)

			if contains(okStatuses, resp.StatusCode) {
				return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
		},
	}
}

func generateAndFetch(ctx context.Context, r *Runner, base string) Result {
	req, err := newRequest(ctx, http.MethodPost, base+"/api/itineraries", trip(14, 4), r.cfg.Token)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	var out struct {
		Success   bool   `json:"success"`
		Error     string `json:"error"`
		Itinerary struct {
			ID      string `json:"id"`
			Content struct {
				GeneratedText string `json:"generated_text"`
			} `json:"content"`
		} `json:"itinerary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Status: "FAIL", Latency: latency, Note: err.Error()}
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d error=%s", resp.StatusCode, out.Error)}
	}
	if out.Itinerary.Content.GeneratedText == "" {
		return Result{Status: "FAIL", Latency: latency, Note: "empty generated_text"}
	}

	get, err := newRequest(ctx, http.MethodGet, base+"/api/itineraries/"+out.Itinerary.ID, nil, r.cfg.Token)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	getResp, err := r.httpc.Do(get)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	io.Copy(io.Discard, getResp.Body)
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("saved itinerary not readable: status=%d", getResp.StatusCode)}
	}
	return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("id=%s chars=%d", out.Itinerary.ID, len(out.Itinerary.Content.GeneratedText))}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count int64
	var errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				req, err := newRequest(ctx, method, url, payload, r.cfg.Token)
				if err != nil {
					return
				}
				resp, err := r.httpc.Do(req)
				if err != nil {
					mu.Lock()
					errCount++
					mu.Unlock()
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				mu.Lock()
				count++
				if resp.StatusCode >= 500 {
					errCount++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}
