package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"baler/internal/catalog"
)

// displayPrinter groups digits in large numbers (1,234,567) for byte and
// item counts shown to the user.
var displayPrinter = message.NewPrinter(language.English)

func buildStatusRows(stats map[catalog.Status]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range catalog.AllStatuses() {
		count, ok := stats[status]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(status), displayPrinter.Sprintf("%d", count)})
	}
	return rows
}

func buildListRows(items []*catalog.Item) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]*catalog.Item, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].UpdatedAt.Equal(sorted[j].UpdatedAt) {
			return sorted[i].ID > sorted[j].ID
		}
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			item.Filename,
			formatStatusLabel(item.Status),
			formatSize(item.OriginalSize),
			formatItemProgress(item),
			formatDisplayTime(item.UpdatedAt),
		})
	}
	return rows
}

func formatStatusLabel(status catalog.Status) string {
	value := strings.TrimSpace(string(status))
	if value == "" {
		return ""
	}
	parts := strings.Split(value, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatItemProgress(item *catalog.Item) string {
	if item == nil || !item.IsProcessing() {
		return "-"
	}
	stage := strings.TrimSpace(item.ProgressStage)
	if stage == "" {
		stage = string(item.Status)
	}
	if item.ProgressPercent > 0 {
		return fmt.Sprintf("%s %.0f%%", stage, item.ProgressPercent)
	}
	return stage
}

func formatDisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDisplayTime(*t)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < 0 {
		return "-"
	}
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	value := float64(bytes)
	suffixes := []string{"KiB", "MiB", "GiB", "TiB"}
	suffix := suffixes[0]
	for _, s := range suffixes {
		suffix = s
		value /= unit
		if value < unit {
			break
		}
	}
	return fmt.Sprintf("%.1f %s", value, suffix)
}

// formatExactSize pairs the grouped byte count with the rounded unit form,
// e.g. "734,003,200 bytes (700.0 MiB)".
func formatExactSize(bytes int64) string {
	if bytes <= 0 {
		return ""
	}
	return displayPrinter.Sprintf("%d bytes (%s)", bytes, formatSize(bytes))
}

func formatPercent(ratio float64) string {
	if ratio <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f%%", ratio*100)
}
