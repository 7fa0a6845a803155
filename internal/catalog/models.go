package catalog

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a media item.
type Status string

const (
	StatusCataloged   Status = "cataloged"
	StatusDownloading Status = "downloading"
	StatusArchiving   Status = "archiving"
	StatusCompressing Status = "compressing"
	StatusVerifying   Status = "verifying"
	StatusUploading   Status = "uploading"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// InterruptedReason is the error message recorded when processing items are
// swept after a crash or shutdown. Interruption does not consume retry budget.
const InterruptedReason = "interrupted by shutdown"

var allStatuses = []Status{
	StatusCataloged,
	StatusDownloading,
	StatusArchiving,
	StatusCompressing,
	StatusVerifying,
	StatusUploading,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading: {},
	StatusArchiving:   {},
	StatusCompressing: {},
	StatusVerifying:   {},
	StatusUploading:   {},
}

// Item represents a media item persisted in the catalog. Records are never
// destroyed by the pipeline; failed items keep their error text and retry
// count for triage.
type Item struct {
	ID              int64
	SourceLocator   string
	Filename        string
	OriginalSize    int64
	Status          Status
	RetryCount      int
	ErrorMessage    string
	StagingPath     string
	ArchivePath     string
	OutputPath      string
	SourceDigest    string
	ArchiveDigest   string
	OutputSize      int64
	Ratio           float64
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Fields carries the optional column updates persisted alongside a status
// advance. Nil pointers leave the stored value untouched.
type Fields struct {
	ErrorMessage   *string
	StagingPath    *string
	ArchivePath    *string
	OutputPath     *string
	SourceDigest   *string
	ArchiveDigest  *string
	OutputSize     *int64
	Ratio          *float64
	IncrementRetry bool
}

// DatabaseHealth captures diagnostic information about the catalog database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated item counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Cataloged  int
	Processing int
	Failed     int
	Completed  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	return IsProcessingStatus(i.Status)
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether a status ends an item's run.
func IsTerminal(status Status) bool {
	return status == StatusCompleted || status == StatusFailed
}
