package main

import (
	"time"

	"baler/internal/catalog"
)

// itemView is the JSON projection of a catalog item.
type itemView struct {
	ID              int64   `json:"id"`
	Filename        string  `json:"filename"`
	SourceLocator   string  `json:"source_locator"`
	Status          string  `json:"status"`
	OriginalSize    int64   `json:"original_size"`
	OutputSize      int64   `json:"output_size,omitempty"`
	Ratio           float64 `json:"ratio,omitempty"`
	RetryCount      int     `json:"retry_count"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	StagingPath     string  `json:"staging_path,omitempty"`
	ArchivePath     string  `json:"archive_path,omitempty"`
	OutputPath      string  `json:"output_path,omitempty"`
	SourceDigest    string  `json:"source_digest,omitempty"`
	ArchiveDigest   string  `json:"archive_digest,omitempty"`
	ProgressStage   string  `json:"progress_stage,omitempty"`
	ProgressPercent float64 `json:"progress_percent,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	CompletedAt     string  `json:"completed_at,omitempty"`
}

func newItemView(item *catalog.Item) itemView {
	view := itemView{
		ID:              item.ID,
		Filename:        item.Filename,
		SourceLocator:   item.SourceLocator,
		Status:          string(item.Status),
		OriginalSize:    item.OriginalSize,
		OutputSize:      item.OutputSize,
		Ratio:           item.Ratio,
		RetryCount:      item.RetryCount,
		ErrorMessage:    item.ErrorMessage,
		StagingPath:     item.StagingPath,
		ArchivePath:     item.ArchivePath,
		OutputPath:      item.OutputPath,
		SourceDigest:    item.SourceDigest,
		ArchiveDigest:   item.ArchiveDigest,
		ProgressStage:   item.ProgressStage,
		ProgressPercent: item.ProgressPercent,
		CreatedAt:       item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if item.CompletedAt != nil {
		view.CompletedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}
	return view
}

func newItemViews(items []*catalog.Item) []itemView {
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	return views
}
