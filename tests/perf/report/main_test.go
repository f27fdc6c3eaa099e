// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	input := strings.Join([]string{
		`{"run_id":"r1","scenario":"benchmark_1x1","transport":"tcp","unit_size":1032,"count":100,"preload":10,"sent":100,"completed":100,"duration_ms":12.5,"msgs_per_sec":8000,"pass":true}`,
		``,
		`not json`,
		`{"run_id":"r2","scenario":"benchmark_1x1","transport":"ws","unit_size":1032,"count":100,"preload":10,"sent":40,"completed":30,"msgs_per_sec":0,"pass":false,"notes":"connection lost"}`,
		`{"run_id":"r3","scenario":"benchmark_1x1","transport":"tcp","unit_size":1032,"count":100,"preload":10,"sent":100,"completed":100,"duration_ms":25,"msgs_per_sec":4000,"pass":true}`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, render(strings.NewReader(input), &out))

	s := out.String()
	assert.Contains(t, s, "SCENARIO")
	assert.Contains(t, s, "1032B")
	assert.Contains(t, s, "connection lost")
	for _, id := range []string{"r1", "r2", "r3"} {
		assert.Contains(t, s, id)
	}
	assert.Contains(t, s, "runs=3 passed=2 skipped_lines=1 avg_mps=6000.00")
}

func TestRenderEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, render(strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "runs=0 passed=0 skipped_lines=0 avg_mps=0.00")
}
