package services

import (
	"fmt"
	"strings"
	"time"
)

type PassStatus string

const (
	StatusSuccess        PassStatus = "success"
	StatusSkippedRecords PassStatus = "skipped_records"
	StatusPartial        PassStatus = "partial"
	StatusFailed         PassStatus = "failed"
)

// Tally counts what a pass did with the records it scanned.
type Tally struct {
	Scanned   int `json:"scanned"`
	Applied   int `json:"applied"`
	Untouched int `json:"untouched"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

type outcome int

const (
	outcomeUntouched outcome = iota
	outcomeApplied
	outcomeSkipped
	outcomeFailed
)

func (o outcome) String() string {
	switch o {
	case outcomeApplied:
		return "applied"
	case outcomeSkipped:
		return "skipped"
	case outcomeFailed:
		return "failed"
	default:
		return "untouched"
	}
}

func (t *Tally) add(o outcome) {
	t.Scanned++
	switch o {
	case outcomeApplied:
		t.Applied++
	case outcomeSkipped:
		t.Skipped++
	case outcomeFailed:
		t.Failed++
	default:
		t.Untouched++
	}
}

type PassResult struct {
	Pass   string     `json:"pass"`
	Status PassStatus `json:"status"`
	Tally
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"startedAt"`
	Duration  time.Duration `json:"duration"`
}

func newPassResult(pass string, startedAt time.Time, tally Tally, err error) PassResult {
	r := PassResult{
		Pass:      pass,
		Tally:     tally,
		Err:       err,
		StartedAt: startedAt,
	}

	switch {
	case err != nil:
		r.Status = StatusFailed
		r.Error = err.Error()
	case tally.Failed > 0:
		r.Status = StatusPartial
	case tally.Skipped > 0:
		r.Status = StatusSkippedRecords
	default:
		r.Status = StatusSuccess
	}
	return r
}

// Report is the outcome of one maintenance invocation.
type Report struct {
	RunID      string       `json:"runId"`
	DryRun     bool         `json:"dryRun"`
	Skipped    bool         `json:"skipped"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Results    []PassResult `json:"results"`
}

// Result returns the result of the named pass.
func (r *Report) Result(pass string) (PassResult, bool) {
	for _, res := range r.Results {
		if res.Pass == pass {
			return res, true
		}
	}
	return PassResult{}, false
}

// Healthy reports whether every pass ran without failures.
func (r *Report) Healthy() bool {
	for _, res := range r.Results {
		if res.Status == StatusFailed || res.Status == StatusPartial {
			return false
		}
	}
	return true
}

func (r *Report) Summary() string {
	if r.Skipped {
		return fmt.Sprintf("run %s skipped: another run is in progress", r.RunID)
	}

	parts := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		parts = append(parts, fmt.Sprintf("%s=%s(%d/%d)", res.Pass, res.Status, res.Applied, res.Scanned))
	}
	return fmt.Sprintf("run %s: %s", r.RunID, strings.Join(parts, " "))
}
