package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"soulcast/internal/api"
	"soulcast/internal/content"
	"soulcast/internal/deps"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderContentTable lists items newest first with a colored status column.
func renderContentTable(items []content.Item, colorize bool) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			truncate(item.Title, 40),
			kindLabel(item.Kind),
			statusLabel(item.Status, colorize),
			durationLabel(item),
			item.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Type", "Status", "Length", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func kindLabel(kind content.Kind) string {
	if kind == content.KindBibleStudy {
		return "Bible study"
	}
	return "Podcast"
}

func statusLabel(status content.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	switch status {
	case content.StatusReady:
		return text.FgGreen.Sprint(label)
	case content.StatusGenerating:
		return text.FgYellow.Sprint(label)
	case content.StatusFailed:
		return text.FgRed.Sprint(label)
	default:
		return label
	}
}

func durationLabel(item content.Item) string {
	if item.DurationMinutes <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d min", item.DurationMinutes)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func describeItem(out io.Writer, item content.Item) {
	fmt.Fprintf(out, "ID:      %s\n", item.ID)
	fmt.Fprintf(out, "Title:   %s\n", item.Title)
	fmt.Fprintf(out, "Type:    %s\n", kindLabel(item.Kind))
	fmt.Fprintf(out, "Status:  %s\n", item.Status)
	if item.Description != "" {
		fmt.Fprintf(out, "Details: %s\n", item.Description)
	}
	if item.HasAudio() {
		fmt.Fprintf(out, "Audio:   %s\n", content.NormalizeAudioURL(item.AudioURL))
	}
}

func describeQuota(out io.Writer, quota api.QuotaStatus) {
	fmt.Fprintf(out, "Used:      %d / %d characters\n", quota.Used, quota.Limit)
	fmt.Fprintf(out, "Remaining: %d characters (%d minutes)\n", quota.Remaining, quota.RemainingMinutes)
	if end, err := time.Parse(time.RFC3339, quota.PeriodEnd); err == nil {
		fmt.Fprintf(out, "Resets:    %s\n", end.Local().Format("2006-01-02"))
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// daemonStatusLines renders the status command body.
func daemonStatusLines(status api.DaemonStatus, colorize bool) []string {
	lines := []string{
		renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize),
	}
	if status.LastError != "" {
		lines = append(lines, renderStatusLine("Backend", statusWarn, status.LastError, colorize))
	} else {
		lines = append(lines, renderStatusLine("Backend", statusOK, status.BackendURL, colorize))
	}

	quotaKind := statusOK
	if status.Quota.RemainingMinutes < 5 {
		quotaKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Quota", quotaKind,
		fmt.Sprintf("%d of %d characters used, %d minutes left", status.Quota.Used, status.Quota.Limit, status.Quota.RemainingMinutes),
		colorize))

	trackingMsg := "Idle"
	if len(status.Tracking.InFlight) > 0 {
		trackingMsg = fmt.Sprintf("%d generating: %s", len(status.Tracking.InFlight), strings.Join(status.Tracking.InFlight, ", "))
	}
	lines = append(lines, renderStatusLine("Tracking", statusInfo, trackingMsg, colorize))

	playbackMsg := "Stopped"
	if status.Playback.CurrentID != "" {
		playbackMsg = "Playing " + status.Playback.CurrentID
		if status.Playback.Paused {
			playbackMsg = "Paused " + status.Playback.CurrentID
		}
	}
	lines = append(lines, renderStatusLine("Playback", statusInfo, playbackMsg, colorize))
	lines = append(lines, renderStatusLine("Items", statusInfo, fmt.Sprintf("%d", status.Items), colorize))
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, status := range statuses {
		if status.Available {
			lines = append(lines, renderStatusLine(status.Name, statusOK, status.Command, colorize))
			continue
		}
		kind := statusError
		if status.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(status.Name, kind, status.Detail, colorize))
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
