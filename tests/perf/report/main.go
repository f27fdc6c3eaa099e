// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Command report renders benchmark result files as a table.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/absmach/mqttbench/bench"
)

func main() {
	input := flag.String("input", "", "Path to JSONL results file")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "-input is required")
		os.Exit(2)
	}

	f, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", *input, err)
		os.Exit(2)
	}
	defer f.Close()

	if err := render(f, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", *input, err)
		os.Exit(2)
	}
}

// render prints one row per result line. Lines that do not decode are
// counted and skipped.
func render(r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	w := tabwriter.NewWriter(out, 2, 2, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tSCENARIO\tTRANSPORT\tUNIT\tCOUNT\tPRELOAD\tSENT\tCOMPLETED\tDURATION_MS\tMPS\tPASS\tRUN_ID")

	var runs, passed, skipped int
	var mpsTotal float64
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res bench.Result
		if err := json.Unmarshal(line, &res); err != nil {
			skipped++
			continue
		}
		runs++
		if res.Pass {
			passed++
			mpsTotal += res.MsgsPerSec
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%dB\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%v\t%s\n",
			res.Timestamp,
			res.Scenario,
			res.Transport,
			res.UnitSize,
			res.Count,
			res.Preload,
			res.Sent,
			res.Completed,
			res.DurationMS,
			res.MsgsPerSec,
			res.Pass,
			res.RunID,
		)
		if res.Notes != "" {
			fmt.Fprintf(w, "notes\t-\t-\t-\t-\t-\t-\t-\t-\t-\t-\t%s\n", res.Notes)
		}
	}
	_ = w.Flush()
	if err := scanner.Err(); err != nil {
		return err
	}

	avg := 0.0
	if passed > 0 {
		avg = mpsTotal / float64(passed)
	}
	fmt.Fprintf(out, "\nruns=%d passed=%d skipped_lines=%d avg_mps=%.2f\n", runs, passed, skipped, avg)
	return nil
}
