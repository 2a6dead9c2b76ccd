package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dshills/forester-mcp/internal/provider"
	"github.com/dshills/forester-mcp/internal/storage"
	"github.com/dshills/forester-mcp/pkg/types"
)

const (
	formatJSON = "json"
	formatText = "text"
)

// cliResult is the JSON envelope for every command's output
type cliResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
}

func validateFormat(format string) error {
	switch format {
	case formatJSON, formatText:
		return nil
	default:
		return fmt.Errorf("invalid --format %q: must be json or text", format)
	}
}

func writeJSON(w io.Writer, command string, results any, total int) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(cliResult{
		Command:    command,
		Results:    results,
		TotalCount: &total,
	})
}

// formatEntriesText formats entries as aligned columns
func formatEntriesText(w io.Writer, entries []types.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTAXON\tTAGS\tSOURCE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.TitleOr("-"), e.TaxonOr("-"), strings.Join(e.Tags, ","), e.SourcePath)
	}
	tw.Flush()
}

// formatSymbolsText formats workspace symbols as aligned columns
func formatSymbolsText(w io.Writer, symbols []provider.Symbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFILE")
	for _, s := range symbols {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ContainerName, s.Name, s.Location.Path)
	}
	tw.Flush()
}

// formatRebuildsText formats journal records as aligned columns
func formatRebuildsText(w io.Writer, records []*storage.RebuildRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GEN\tOUTCOME\tENTRIES\tCHANGED\tDURATION\tFINISHED\tERROR")
	for _, r := range records {
		errText := ""
		if r.Error != nil {
			errText = *r.Error
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%t\t%s\t%s\t%s\n",
			r.Generation, r.Outcome, r.EntryCount, r.Changed,
			r.Duration().Round(time.Millisecond), r.FinishedAt.Format(time.RFC3339), errText)
	}
	tw.Flush()
}

// formatWorkspacesText formats journal workspaces as aligned columns
func formatWorkspacesText(w io.Writer, workspaces []*storage.Workspace) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROOT\tLAST REBUILD")
	for _, ws := range workspaces {
		last := "-"
		if !ws.LastRebuildAt.IsZero() {
			last = ws.LastRebuildAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", ws.ID, ws.RootPath, last)
	}
	tw.Flush()
}

// cliRebuild is a JSON-friendly journal record
type cliRebuild struct {
	Generation  uint64    `json:"generation"`
	Outcome     string    `json:"outcome"`
	EntryCount  int       `json:"entry_count"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Changed     bool      `json:"changed"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMS  int64     `json:"duration_ms"`
}

func rebuildToCLI(r *storage.RebuildRecord) cliRebuild {
	out := cliRebuild{
		Generation: r.Generation,
		Outcome:    r.Outcome,
		EntryCount: r.EntryCount,
		Changed:    r.Changed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration().Milliseconds(),
	}
	if r.Outcome == storage.OutcomeReady {
		out.Fingerprint = fmt.Sprintf("%016x", r.Fingerprint)
	}
	if r.Error != nil {
		out.Error = *r.Error
	}
	return out
}

// cliWorkspace is a JSON-friendly journal workspace
type cliWorkspace struct {
	ID            int64      `json:"id"`
	RootPath      string     `json:"root_path"`
	LastRebuildAt *time.Time `json:"last_rebuild_at,omitempty"`
}

func workspaceToCLI(ws *storage.Workspace) cliWorkspace {
	out := cliWorkspace{ID: ws.ID, RootPath: ws.RootPath}
	if !ws.LastRebuildAt.IsZero() {
		out.LastRebuildAt = &ws.LastRebuildAt
	}
	return out
}
