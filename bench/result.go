// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Result describes one run. Benchmark runs append it as a JSON line to
// bench.results_file.
type Result struct {
	RunID      string  `json:"run_id"`
	Timestamp  string  `json:"timestamp"`
	Scenario   string  `json:"scenario"`
	Goal       string  `json:"goal"`
	Addr       string  `json:"addr"`
	Transport  string  `json:"transport"`
	Count      int     `json:"count"`
	Preload    int     `json:"preload"`
	UnitSize   int     `json:"unit_size"`
	Sent       int     `json:"sent"`
	Completed  int     `json:"completed"`
	Residual   int     `json:"residual_bytes"`
	DurationMS float64 `json:"duration_ms"`
	MsgsPerSec float64 `json:"msgs_per_sec"`
	Pass       bool    `json:"pass"`
	Notes      string  `json:"notes,omitempty"`
}

// Elapsed returns the measured duration.
func (r Result) Elapsed() time.Duration {
	return time.Duration(r.DurationMS * float64(time.Millisecond))
}

// AppendResult writes r as one JSON line at the end of path.
func AppendResult(path string, r *Result) error {
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open results file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
