package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mediaproc/internal/queue"
)

var titleCaser = cases.Title(language.English)

func statusLabel(status queue.Status) string {
	return titleCaser.String(string(status))
}

func buildQueueListRows(items []*queue.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Hash,
			item.Variant,
			statusLabel(item.Status),
			item.CreatedAt.Local().Format(time.DateTime),
			truncate(item.ErrorMessage, 60),
		})
	}
	return rows
}

func buildQueueStatusRows(stats map[queue.Status]int) [][]string {
	var rows [][]string
	for _, status := range queue.AllStatuses() {
		count := stats[status]
		if count == 0 {
			continue
		}
		rows = append(rows, []string{statusLabel(status), strconv.Itoa(count)})
	}
	return rows
}

func renderItemDetail(item *queue.Item, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Item %d\n", item.ID)
	b.WriteString(renderStatusLine("Status", queueStatusKind(item.Status), statusLabel(item.Status), colorize))
	b.WriteByte('\n')
	lines := [][2]string{
		{"Hash", item.Hash},
		{"Variant", item.Variant},
		{"Category", item.Category},
		{"Source", item.SourcePath},
		{"State", string(item.Status.ProcessorState())},
		{"Servable", yesNo(item.Status.Servable())},
		{"Created", item.CreatedAt.Local().Format(time.DateTime)},
		{"Updated", item.UpdatedAt.Local().Format(time.DateTime)},
	}
	if item.SyncDuration > 0 {
		lines = append(lines, [2]string{"Sync time", item.SyncDuration.Round(time.Millisecond).String()})
	}
	if item.AsyncDuration > 0 {
		lines = append(lines, [2]string{"Async time", item.AsyncDuration.Round(time.Millisecond).String()})
	}
	if item.ProgressMessage != "" {
		lines = append(lines, [2]string{"Progress", item.ProgressMessage})
	}
	if item.ErrorMessage != "" {
		lines = append(lines, [2]string{"Error", item.ErrorMessage})
		lines = append(lines, [2]string{"Error kind", item.ErrorKind})
	}
	for _, line := range lines {
		fmt.Fprintf(&b, "  %-*s %s\n", statusLabelWidth, line[0]+":", line[1])
	}
	writePaths(&b, "Artifacts", item.Artifacts())
	writePaths(&b, "Side files", item.SideFiles())
	return b.String()
}

func writePaths(b *strings.Builder, label string, paths []string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s:\n", label)
	for _, path := range paths {
		fmt.Fprintf(b, "    - %s\n", path)
	}
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
