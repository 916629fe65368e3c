package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/colligo/internal/models"
)

// Provider failure taxonomy. All three are scoped to a single item: the
// engine logs them, abandons the item, and continues with the cluster.
var (
	// ErrProviderRejected means the submission was not accepted or the
	// response omitted a job identifier.
	ErrProviderRejected = errors.New("provider rejected submission")

	// ErrProviderUnavailable means a status check failed at the transport
	// level or returned a non-success response.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrProviderDataMalformed means a terminal result payload was not a
	// list of records.
	ErrProviderDataMalformed = errors.New("provider data malformed")

	// ErrRetryAfter means the job result is still being built; the caller
	// should retry the fetch after its configured interval. Distinct from
	// terminal failure.
	ErrRetryAfter = errors.New("result not ready, retry later")
)

// JobStatus is the lifecycle state reported by the provider for one job.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusReady    JobStatus = "ready"
	JobStatusFailed   JobStatus = "failed"
	JobStatusCanceled JobStatus = "canceled"
	JobStatusUnknown  JobStatus = "unknown"
)

// JobRequest describes one submission to the scraping provider.
type JobRequest struct {
	Items        []string
	Mode         models.CollectionMode
	PerItemLimit int
	TotalLimit   int
	Region       string
}

// JobProvider wraps the asynchronous scrape-job lifecycle behind a uniform
// interface regardless of collection mode. One outstanding job per
// submission; the caller owns poll intervals and timeouts.
type JobProvider interface {
	// Submit starts one job and returns its identifier.
	Submit(ctx context.Context, req JobRequest) (string, error)

	// Status performs exactly one status check.
	Status(ctx context.Context, jobID string) (JobStatus, error)

	// Fetch downloads the job's records. Returns ErrRetryAfter while the
	// result is still building.
	Fetch(ctx context.Context, jobID string) ([]models.RawRecord, error)
}
