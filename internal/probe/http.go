package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cardioviz/pkg/logger"
)

// HTTPClient wraps http.Client with a base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// Get performs a GET request against path.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes a 200 response from path into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type refreshBody struct {
	RequestID string `json:"request_id"`
}

type outcome int

const (
	outcomeAccepted outcome = iota
	outcomeDuplicate
	outcomeBackpressure
	outcomeFailed
)

// submitRefreshes posts ids concurrently and returns the ids the server accepted.
func submitRefreshes(ctx context.Context, cfg *Config, client *HTTPClient, ids []string, stats *Stats) []string {
	log := logger.Get().Named("probe")

	var (
		accepted, duplicate, backpressure, failed, submitted int64
		mu                                                   sync.Mutex
		acceptedIDs                                          []string
		wg                                                   sync.WaitGroup
	)

	work := make(chan string, cfg.Workers*2)
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				res := submitOne(ctx, client, id)
				atomic.AddInt64(&submitted, 1)
				switch res {
				case outcomeAccepted:
					atomic.AddInt64(&accepted, 1)
					mu.Lock()
					acceptedIDs = append(acceptedIDs, id)
					mu.Unlock()
				case outcomeDuplicate:
					atomic.AddInt64(&duplicate, 1)
				case outcomeBackpressure:
					atomic.AddInt64(&backpressure, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
				if cfg.Verbose {
					log.Debug(ctx, "refresh submitted", logger.String("requestID", id), logger.Int("outcome", int(res)))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, id := range ids {
			select {
			case <-ctx.Done():
				return
			case work <- id:
			}
		}
	}()
	wg.Wait()

	stats.Submitted += int(atomic.LoadInt64(&submitted))
	stats.Accepted += int(atomic.LoadInt64(&accepted))
	stats.Duplicate += int(atomic.LoadInt64(&duplicate))
	stats.Backpressure += int(atomic.LoadInt64(&backpressure))
	stats.Failed += int(atomic.LoadInt64(&failed))
	return acceptedIDs
}

func submitOne(ctx context.Context, client *HTTPClient, id string) outcome {
	resp, err := client.Post(ctx, "/api/refresh", refreshBody{RequestID: id})
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()

	var ack AckResponse
	_ = json.NewDecoder(resp.Body).Decode(&ack)
	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		if ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeFailed
	case http.StatusTooManyRequests:
		return outcomeBackpressure
	default:
		return outcomeFailed
	}
}

func newRequestIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return ids
}
