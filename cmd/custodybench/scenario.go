package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"github.com/dtn-agent/custodytable/pkg/rhhash"
)

// scenario is the scripted-benchmark configuration, loaded from a
// JSON-with-comments file so operators can annotate weight choices
// in place rather than keeping a separate README.
type scenario struct {
	Capacity     int     `json:"capacity"`
	Seed         uint64  `json:"seed"`
	AddWeight    float64 `json:"addWeight"`
	RemoveWeight float64 `json:"removeWeight"`
	PeekWeight   float64 `json:"peekWeight"`
	Ops          int     `json:"ops"`
}

func loadScenario(path string) (scenario, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied by design
	if err != nil {
		return scenario{}, fmt.Errorf("reading scenario file: %w", err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return scenario{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var s scenario
	if err := json.Unmarshal(standardized, &s); err != nil {
		return scenario{}, fmt.Errorf("invalid JSON: %w", err)
	}

	if s.Capacity <= 0 {
		return scenario{}, fmt.Errorf("scenario: capacity must be positive, got %d", s.Capacity)
	}

	if s.Ops <= 0 {
		return scenario{}, fmt.Errorf("scenario: ops must be positive, got %d", s.Ops)
	}

	if s.AddWeight+s.RemoveWeight+s.PeekWeight <= 0 {
		return scenario{}, fmt.Errorf("scenario: at least one of addWeight/removeWeight/peekWeight must be positive")
	}

	return s, nil
}

// benchReport is the JSON summary written to --report.
type benchReport struct {
	Capacity     int     `json:"capacity"`
	Seed         uint64  `json:"seed"`
	Ops          int     `json:"ops"`
	Elapsed      string  `json:"elapsed"`
	OpsPerSecond float64 `json:"opsPerSecond"`
	FinalCount   int     `json:"finalCount"`
	Adds         int     `json:"adds"`
	Removes      int     `json:"removes"`
	Peeks        int     `json:"peeks"`
	TableFull    int     `json:"tableFull"`
	CIDNotFound  int     `json:"cidNotFound"`
}

func runScenario(out, errOut *os.File, scenarioPath, reportPath string) int {
	s, err := loadScenario(scenarioPath)
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)

		return 1
	}

	table, err := rhhash.New(s.Capacity)
	if err != nil {
		fmt.Fprintln(errOut, "error: creating table:", err)

		return 1
	}
	defer table.Close()

	report := runOpMix(table, s)

	fmt.Fprintf(out, "ops=%d elapsed=%s (%.0f ops/sec) final_count=%d\n",
		report.Ops, report.Elapsed, report.OpsPerSecond, report.FinalCount)
	fmt.Fprintf(out, "adds=%d removes=%d peeks=%d table_full=%d cid_not_found=%d\n",
		report.Adds, report.Removes, report.Peeks, report.TableFull, report.CIDNotFound)

	if reportPath == "" {
		return 0
	}

	if err := writeReport(reportPath, report); err != nil {
		fmt.Fprintln(errOut, "error: writing report:", err)

		return 1
	}

	return 0
}

// runOpMix drives table through a weighted random sequence of
// Add/Remove/Peek calls, sized by s.Ops, and returns the resulting
// counters. CIDs are drawn from a range roughly twice the table's
// capacity so both chain collisions and steady churn are exercised.
func runOpMix(table *rhhash.Table, s scenario) benchReport {
	rng := rand.New(rand.NewPCG(s.Seed, s.Seed^0xdeadbeef))

	total := s.AddWeight + s.RemoveWeight + s.PeekWeight

	var adds, removes, peeks, tableFull, cidNotFound int

	cidSpace := uint64(s.Capacity) * 2
	if cidSpace == 0 {
		cidSpace = 1
	}

	start := time.Now()

	for i := 0; i < s.Ops; i++ {
		pick := rng.Float64() * total

		switch {
		case pick < s.AddWeight:
			cid := rng.Uint64N(cidSpace)
			sid := rng.Uint64() | 1

			adds++

			if err := table.Add(rhhash.Bundle{CID: cid, SID: sid}, true); err != nil {
				tableFull++
			}
		case pick < s.AddWeight+s.RemoveWeight:
			cid := rng.Uint64N(cidSpace)

			removes++

			if _, err := table.Remove(cid); err != nil {
				cidNotFound++
			}
		default:
			peeks++

			_, _ = table.Peek()
		}
	}

	elapsed := time.Since(start)

	opsPerSecond := 0.0
	if elapsed > 0 {
		opsPerSecond = float64(s.Ops) / elapsed.Seconds()
	}

	return benchReport{
		Capacity:     s.Capacity,
		Seed:         s.Seed,
		Ops:          s.Ops,
		Elapsed:      elapsed.Round(time.Millisecond).String(),
		OpsPerSecond: opsPerSecond,
		FinalCount:   table.Count(),
		Adds:         adds,
		Removes:      removes,
		Peeks:        peeks,
		TableFull:    tableFull,
		CIDNotFound:  cidNotFound,
	}
}

// writeReport marshals report as indented JSON and writes it atomically,
// so a reader polling the report path never observes a partial file.
func writeReport(path string, report benchReport) error {
	buf, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(buf))
}
