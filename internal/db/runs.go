package db

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/newhook/harvest/internal/issue"
	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/report"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// timeFormat sorts lexically in the same order as the times it encodes.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded parse of a source by a tool.
type Run struct {
	ID         string
	Source     string
	Tool       string
	Status     string
	Lines      int
	IssueCount int
	ErrorCount int
	CreatedAt  time.Time
}

// Delta classifies the issues of two runs by fingerprint.
type Delta struct {
	From *Run
	To   *Run

	// New holds issues present in To but not in From.
	New []issue.Issue
	// Fixed holds issues present in From but not in To.
	Fixed []issue.Issue
	// Outstanding holds the issues of To that were already present in From.
	Outstanding []issue.Issue
}

// HasChanges reports whether any issue appeared or disappeared.
func (d *Delta) HasChanges() bool {
	return len(d.New) > 0 || len(d.Fixed) > 0
}

// RecordRun stores the report produced by tool for source, with its issues
// and error-log entries, and returns the new run.
func (db *DB) RecordRun(ctx context.Context, source, tool string, rep *report.Report) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		Source:     source,
		Tool:       tool,
		Status:     rep.Status().String(),
		Lines:      rep.Lines(),
		IssueCount: rep.Len(),
		ErrorCount: rep.ErrorCount(),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source, tool, status, lines, issue_count, error_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Tool, run.Status, run.Lines, run.IssueCount, run.ErrorCount, run.CreatedAt.Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	insertIssue, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (run_id, seq, file_name, line_start, line_end, column_start, column_end,
			severity, category, type, message, package_name, module_name, description, fingerprint, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare issue insert: %w", err)
	}
	defer insertIssue.Close()

	for seq, i := range rep.Issues() {
		_, err := insertIssue.ExecContext(ctx, run.ID, seq, i.FileName, i.LineStart, i.LineEnd,
			i.ColumnStart, i.ColumnEnd, i.Severity.String(), i.Category, i.Type, i.Message,
			i.PackageName, i.ModuleName, i.Description, i.Fingerprint, i.Origin)
		if err != nil {
			return nil, fmt.Errorf("failed to insert issue %d: %w", seq, err)
		}
	}

	for seq, e := range rep.Errors() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO parse_errors (run_id, seq, line, text, cause) VALUES (?, ?, ?, ?, ?)
		`, run.ID, seq, e.Line, e.Text, e.Cause)
		if err != nil {
			return nil, fmt.Errorf("failed to insert parse error %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	logging.DebugContext(ctx, "recorded run", "id", run.ID, "source", source, "tool", tool, "issues", run.IssueCount)
	return run, nil
}

const runColumns = `id, source, tool, status, lines, issue_count, error_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt string
	if err := row.Scan(&run.ID, &run.Source, &run.Tool, &run.Status, &run.Lines,
		&run.IssueCount, &run.ErrorCount, &createdAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t
	return &run, nil
}

func (db *DB) queryRuns(ctx context.Context, query string, args ...any) ([]*Run, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	return db.queryRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
}

// LatestRuns returns up to n runs of tool over source, newest first.
func (db *DB) LatestRuns(ctx context.Context, source, tool string, n int) ([]*Run, error) {
	if n <= 0 {
		n = -1
	}
	return db.queryRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE source = ? AND tool = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, source, tool, n)
}

// GetRun returns the run with the given id. Unambiguous id prefixes are
// accepted so ids can be copied from `harvest history` output.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	runs, err := db.queryRuns(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? || '%' LIMIT 2`, id, id)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
	}
	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	}
	return nil, fmt.Errorf("ambiguous run id prefix %q", id)
}

// RunIssues returns the issues recorded for a run in their original order.
func (db *DB) RunIssues(ctx context.Context, runID string) ([]issue.Issue, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT file_name, line_start, line_end, column_start, column_end, severity, category,
			type, message, package_name, module_name, description, fingerprint, origin
		FROM issues WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []issue.Issue
	for rows.Next() {
		var i issue.Issue
		var severity string
		if err := rows.Scan(&i.FileName, &i.LineStart, &i.LineEnd, &i.ColumnStart, &i.ColumnEnd,
			&severity, &i.Category, &i.Type, &i.Message, &i.PackageName, &i.ModuleName,
			&i.Description, &i.Fingerprint, &i.Origin); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		sev, err := issue.ParseSeverity(severity)
		if err != nil {
			return nil, err
		}
		i.Severity = sev
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// RunErrors returns the error-log entries recorded for a run.
func (db *DB) RunErrors(ctx context.Context, run *Run) ([]report.ErrorEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT line, text, cause FROM parse_errors WHERE run_id = ? ORDER BY seq
	`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query parse errors: %w", err)
	}
	defer rows.Close()

	var entries []report.ErrorEntry
	for rows.Next() {
		e := report.ErrorEntry{Source: run.Source}
		if err := rows.Scan(&e.Line, &e.Text, &e.Cause); err != nil {
			return nil, fmt.Errorf("failed to scan parse error: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LoadReport rebuilds the report a run was recorded from.
func (db *DB) LoadReport(ctx context.Context, run *Run) (*report.Report, error) {
	issues, err := db.RunIssues(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	errs, err := db.RunErrors(ctx, run)
	if err != nil {
		return nil, err
	}
	return report.FromSnapshot(report.Snapshot{
		Name:   run.Source,
		Origin: run.Tool,
		Status: run.Status,
		Lines:  run.Lines,
		Issues: issues,
		Errors: errs,
	}), nil
}

// DeleteRun removes a run with its issues and error-log entries.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Compare classifies the issues of newID against those of oldID. Issues are
// matched by fingerprint as a multiset: two identical warnings in the old run
// and three in the new run yield two outstanding and one new.
func (db *DB) Compare(ctx context.Context, oldID, newID string) (*Delta, error) {
	from, err := db.GetRun(ctx, oldID)
	if err != nil {
		return nil, err
	}
	to, err := db.GetRun(ctx, newID)
	if err != nil {
		return nil, err
	}
	oldIssues, err := db.RunIssues(ctx, from.ID)
	if err != nil {
		return nil, err
	}
	newIssues, err := db.RunIssues(ctx, to.ID)
	if err != nil {
		return nil, err
	}

	delta := Diff(oldIssues, newIssues)
	delta.From = from
	delta.To = to
	return delta, nil
}

// Diff classifies newIssues against oldIssues by fingerprint. Order follows
// the input slices.
func Diff(oldIssues, newIssues []issue.Issue) *Delta {
	remaining := make(map[string]int, len(oldIssues))
	for _, i := range oldIssues {
		remaining[i.Fingerprint]++
	}

	delta := &Delta{}
	for _, i := range newIssues {
		if remaining[i.Fingerprint] > 0 {
			remaining[i.Fingerprint]--
			delta.Outstanding = append(delta.Outstanding, i)
			continue
		}
		delta.New = append(delta.New, i)
	}

	// Walk the old issues backwards so the last unmatched copies are the ones
	// reported fixed, then restore input order.
	for _, i := range slices.Backward(oldIssues) {
		if remaining[i.Fingerprint] > 0 {
			remaining[i.Fingerprint]--
			delta.Fixed = append(delta.Fixed, i)
		}
	}
	slices.Reverse(delta.Fixed)
	return delta
}
