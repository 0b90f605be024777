package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/okian/cardioviz/internal/domain/model"
	"github.com/okian/cardioviz/pkg/logger"
)

const (
	healthLakeService = "healthlake"
	defaultPageSize   = 100
	defaultMaxPages   = 10
	maxErrorBody      = 512
	// sha256 of an empty payload, required by SigV4 for GET requests
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// HealthLakeOption applies a configuration option to the HealthLake client.
type HealthLakeOption func(*HealthLake)

// WithEndpoint overrides the service base URL, e.g. for a local FHIR server.
// The default is https://healthlake.{region}.amazonaws.com.
func WithEndpoint(endpoint string) HealthLakeOption {
	return func(h *HealthLake) {
		if endpoint != "" {
			h.endpoint = strings.TrimRight(endpoint, "/")
		}
	}
}

// WithCredentials enables SigV4 request signing. Without an access key requests go unsigned.
func WithCredentials(accessKeyID, secretAccessKey, sessionToken string) HealthLakeOption {
	return func(h *HealthLake) {
		h.creds = aws.Credentials{
			AccessKeyID:     accessKeyID,
			SecretAccessKey: secretAccessKey,
			SessionToken:    sessionToken,
			Source:          "cardioviz config",
		}
	}
}

// WithHTTPClient sets the client used for FHIR requests.
func WithHTTPClient(c *http.Client) HealthLakeOption {
	return func(h *HealthLake) {
		if c != nil {
			h.client = c
		}
	}
}

// WithPageSize sets the FHIR _count parameter.
func WithPageSize(n int) HealthLakeOption {
	return func(h *HealthLake) {
		if n > 0 {
			h.pageSize = n
		}
	}
}

// WithMaxPages bounds how many "next" links are followed per fetch.
func WithMaxPages(n int) HealthLakeOption {
	return func(h *HealthLake) {
		if n > 0 {
			h.maxPages = n
		}
	}
}

// WithHealthLakeLogger sets the client logger.
func WithHealthLakeLogger(l logger.Logger) HealthLakeOption {
	return func(h *HealthLake) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithSigningClock overrides the signing time, for tests.
func WithSigningClock(now func() time.Time) HealthLakeOption {
	return func(h *HealthLake) {
		if now != nil {
			h.now = now
		}
	}
}

// HealthLake fetches blood pressure and heart rate observations from a FHIR R4 datastore
// and joins them into one record per patient and day.
type HealthLake struct {
	endpoint string
	creds    aws.Credentials
	signer   *v4.Signer
	client   *http.Client
	pageSize int
	maxPages int
	now      func() time.Time
	logger   logger.Logger
}

// NewHealthLake creates a FHIR client.
func NewHealthLake(opts ...HealthLakeOption) *HealthLake {
	h := &HealthLake{
		signer:   v4.NewSigner(),
		client:   &http.Client{Timeout: 30 * time.Second},
		pageSize: defaultPageSize,
		maxPages: defaultMaxPages,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("source.healthlake")
	}
	return h
}

// Fetch searches the target datastore for cardio observations.
func (h *HealthLake) Fetch(ctx context.Context, target model.Target) ([]model.Record, error) {
	next := h.searchURL(target)
	joiner := newRecordJoiner()

	pages := 0
	for next != "" && pages < h.maxPages {
		b, err := h.get(ctx, target.Region, next)
		if err != nil {
			return nil, err
		}
		for _, e := range b.Entry {
			joiner.add(e.Resource)
		}
		pages++
		next = b.next()
	}

	records := joiner.records()
	h.logger.Debug(ctx, "healthlake search complete",
		logger.String("datastore", target.DatastoreID),
		logger.Int("pages", pages),
		logger.Int("records", len(records)),
		logger.Int("incomplete", joiner.incomplete),
		logger.Bool("truncated", next != ""),
	)
	return records, nil
}

func (h *HealthLake) searchURL(target model.Target) string {
	base := h.endpoint
	if base == "" {
		base = fmt.Sprintf("https://healthlake.%s.amazonaws.com", target.Region)
	}
	q := url.Values{}
	q.Set("code", ObservationCodes)
	q.Set("_count", fmt.Sprint(h.pageSize))
	return fmt.Sprintf("%s/datastore/%s/r4/Observation?%s", base, url.PathEscape(target.DatastoreID), q.Encode())
}

func (h *HealthLake) get(ctx context.Context, region, rawURL string) (bundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return bundle{}, err
	}
	req.Header.Set("Accept", "application/fhir+json")

	if h.creds.AccessKeyID != "" {
		if err := h.signer.SignHTTP(ctx, h.creds, req, emptyPayloadHash, healthLakeService, region, h.now()); err != nil {
			return bundle{}, fmt.Errorf("%w: %w", ErrSign, err)
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return bundle{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return bundle{}, fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var b bundle
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return bundle{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if b.ResourceType != "" && b.ResourceType != "Bundle" {
		return bundle{}, fmt.Errorf("%w: resourceType %q", ErrDecode, b.ResourceType)
	}
	return b, nil
}
