// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"math/rand"
	"testing"

	"github.com/absmach/mqttbench/packets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReassemblerConsume(t *testing.T) {
	unit := packets.PublishSize(3, 1024)

	tests := []struct {
		name     string
		chunks   []int
		units    int
		residual int
	}{
		{"single exact unit", []int{unit}, 1, 0},
		{"three units and a partial", []int{3*unit + 500}, 3, 500},
		{"unit split in two", []int{unit - 1, 1}, 1, 0},
		{"byte at a time", repeat(1, unit+3), 1, 3},
		{"empty chunks", []int{0, 0, unit, 0}, 1, 0},
		{"hundred units", []int{100 * unit}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReassembler(unit)
			require.NoError(t, err)
			total := 0
			for _, n := range tt.chunks {
				total += r.Consume(make([]byte, n))
			}
			assert.Equal(t, tt.units, total)
			assert.Equal(t, tt.residual, r.Buffered())
		})
	}
}

func TestReassemblerAnySegmentation(t *testing.T) {
	const units = 100
	unit := packets.PublishSize(3, 1024)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		r, err := NewReassembler(unit)
		require.NoError(t, err)
		remaining := units * unit
		total := 0
		for remaining > 0 {
			n := min(1+rng.Intn(3*unit), remaining)
			total += r.Consume(make([]byte, n))
			remaining -= n
			assert.Less(t, r.Buffered(), unit)
		}
		assert.Equal(t, units, total)
		assert.Zero(t, r.Buffered())
	}
}

func TestNewReassemblerRejectsEmptyUnit(t *testing.T) {
	for _, size := range []int{0, -1} {
		r, err := NewReassembler(size)
		assert.ErrorIs(t, err, ErrInvalidUnitSize, "size %d", size)
		assert.Nil(t, r)
	}
}

func repeat(n, times int) []int {
	out := make([]int, times)
	for i := range out {
		out[i] = n
	}
	return out
}
