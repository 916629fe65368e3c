// Package brightdata wraps the Bright Data dataset API (trigger, progress,
// snapshot) behind the JobProvider interface. One submission produces one
// snapshot job tracked by id; the caller owns poll intervals and timeouts.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// Service implements interfaces.JobProvider.
type Service struct {
	cfg        *common.ProviderConfig
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewService creates a Bright Data provider adapter.
func NewService(cfg *common.ProviderConfig, logger arbor.ILogger) *Service {
	timeout := 180 * time.Second
	if cfg.RequestTimeout != "" {
		if parsed, err := time.ParseDuration(cfg.RequestTimeout); err == nil {
			timeout = parsed
		} else {
			logger.Warn().
				Str("request_timeout", cfg.RequestTimeout).
				Msg("Invalid provider request timeout, using default")
		}
	}

	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// triggerInput is one element of the trigger request body.
type triggerInput struct {
	URL     string `json:"url,omitempty"`
	Keyword string `json:"keyword,omitempty"`
	Country string `json:"country"`
}

// Submit implements interfaces.JobProvider. The dataset id and discovery
// parameters depend on the collection mode.
func (s *Service) Submit(ctx context.Context, req interfaces.JobRequest) (string, error) {
	datasetID := s.cfg.CollectDatasetID
	if req.Mode == models.DiscoverByKeyword {
		datasetID = s.cfg.DiscoverDatasetID
	}

	params := url.Values{}
	params.Set("dataset_id", datasetID)
	params.Set("include_errors", "true")
	params.Set("format", "json")
	if req.Mode == models.DiscoverByKeyword {
		params.Set("type", "discover_new")
		params.Set("discover_by", "keyword")
	}
	if req.PerItemLimit > 0 {
		params.Set("limit_per_input", strconv.Itoa(req.PerItemLimit))
	}
	if req.TotalLimit > 0 {
		params.Set("limit_multiple_results", strconv.Itoa(req.TotalLimit))
	}

	inputs := make([]triggerInput, 0, len(req.Items))
	for _, item := range req.Items {
		input := triggerInput{Country: req.Region}
		if req.Mode == models.DiscoverByKeyword {
			input.Keyword = item
		} else {
			input.URL = item
		}
		inputs = append(inputs, input)
	}

	payload, err := json.Marshal(inputs)
	if err != nil {
		return "", fmt.Errorf("failed to encode trigger inputs: %w", err)
	}

	endpoint := s.cfg.BaseURL + "/trigger?" + params.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build trigger request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("trigger request failed: %v: %w", err, interfaces.ErrProviderRejected)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("trigger returned %d: %s: %w", resp.StatusCode, truncate(body, 500), interfaces.ErrProviderRejected)
	}

	var trigger struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.Unmarshal(body, &trigger); err != nil {
		return "", fmt.Errorf("cannot parse trigger response: %v: %w", err, interfaces.ErrProviderRejected)
	}
	if trigger.SnapshotID == "" {
		return "", fmt.Errorf("trigger response without snapshot_id: %s: %w", truncate(body, 200), interfaces.ErrProviderRejected)
	}

	s.logger.Debug().
		Str("snapshot_id", trigger.SnapshotID).
		Str("dataset_id", datasetID).
		Str("mode", string(req.Mode)).
		Int("inputs", len(inputs)).
		Msg("Scrape job submitted")

	return trigger.SnapshotID, nil
}

// Status implements interfaces.JobProvider. Exactly one status check per
// call.
func (s *Service) Status(ctx context.Context, jobID string) (interfaces.JobStatus, error) {
	endpoint := s.cfg.BaseURL + "/progress/" + url.PathEscape(jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return interfaces.JobStatusUnknown, fmt.Errorf("failed to build progress request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return interfaces.JobStatusUnknown, fmt.Errorf("progress request failed: %v: %w", err, interfaces.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return interfaces.JobStatusUnknown, fmt.Errorf("progress returned %d: %s: %w", resp.StatusCode, truncate(body, 200), interfaces.ErrProviderUnavailable)
	}

	var progress struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &progress); err != nil {
		return interfaces.JobStatusUnknown, fmt.Errorf("cannot parse progress response: %v: %w", err, interfaces.ErrProviderUnavailable)
	}

	return mapStatus(progress.Status), nil
}

// mapStatus converts the provider's status strings to the uniform enum.
func mapStatus(raw string) interfaces.JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ready":
		return interfaces.JobStatusReady
	case "running", "building", "collecting", "pending":
		return interfaces.JobStatusPending
	case "failed", "error":
		return interfaces.JobStatusFailed
	case "canceled", "canceling", "cancelled":
		return interfaces.JobStatusCanceled
	default:
		return interfaces.JobStatusUnknown
	}
}

// Fetch implements interfaces.JobProvider. A 202 response means the
// snapshot is still being materialized and is signaled as ErrRetryAfter,
// distinct from terminal failure.
func (s *Service) Fetch(ctx context.Context, jobID string) ([]models.RawRecord, error) {
	endpoint := s.cfg.BaseURL + "/snapshot/" + url.PathEscape(jobID) + "?format=json"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %v: %w", err, interfaces.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK:
		return parseRecords(body, s.logger)
	case http.StatusAccepted:
		return nil, fmt.Errorf("snapshot still building: %w", interfaces.ErrRetryAfter)
	default:
		return nil, fmt.Errorf("snapshot returned %d: %s: %w", resp.StatusCode, truncate(body, 200), interfaces.ErrProviderUnavailable)
	}
}

// parseRecords decodes a terminal snapshot payload. The provider usually
// returns a JSON array but some datasets stream NDJSON; bad NDJSON lines
// are tolerated and counted rather than failing the whole download.
func parseRecords(body []byte, logger arbor.ILogger) ([]models.RawRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var records []models.RawRecord
	if err := json.Unmarshal(trimmed, &records); err == nil {
		return records, nil
	}

	// NDJSON fallback
	good := 0
	bad := 0
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec models.RawRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			bad++
			continue
		}
		records = append(records, rec)
		good++
	}

	if good == 0 {
		return nil, fmt.Errorf("expected a JSON array of records: %w", interfaces.ErrProviderDataMalformed)
	}
	if bad > 0 {
		logger.Warn().
			Int("parsed", good).
			Int("bad_lines", bad).
			Msg("Snapshot NDJSON contained unparseable lines")
	}
	return records, nil
}

func truncate(b []byte, n int) string {
	s := string(b)
	if len(s) > n {
		return s[:n]
	}
	return s
}
