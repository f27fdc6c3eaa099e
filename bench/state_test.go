// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_suback", StateAwaitingSubAck.String())
	assert.Equal(t, "benchmarking", StateBenchmarking.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestMachineHappyPath(t *testing.T) {
	var seen []State
	m := NewMachine(func(_, to State, _ Trigger) {
		seen = append(seen, to)
	})

	for _, tr := range []Trigger{TriggerDial, TriggerDialed, TriggerConnAck, TriggerSubscribe, TriggerSubAck, TriggerStart, TriggerClose} {
		require.NoError(t, m.Fire(tr), "trigger %s", tr)
	}

	assert.Equal(t, []State{
		StateConnecting,
		StateAwaitingConnAck,
		StateConnected,
		StateAwaitingSubAck,
		StateSubscribed,
		StateBenchmarking,
		StateClosed,
	}, seen)
}

func TestMachineIllegal(t *testing.T) {
	tests := []struct {
		name    string
		prefix  []Trigger
		trigger Trigger
	}{
		{"start from idle", nil, TriggerStart},
		{"suback before subscribe", []Trigger{TriggerDial, TriggerDialed, TriggerConnAck}, TriggerSubAck},
		{"connack twice", []Trigger{TriggerDial, TriggerDialed, TriggerConnAck}, TriggerConnAck},
		{"close twice", []Trigger{TriggerClose}, TriggerClose},
		{"dial after close", []Trigger{TriggerClose}, TriggerDial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(nil)
			for _, tr := range tt.prefix {
				require.NoError(t, m.Fire(tr))
			}
			before := m.State()
			assert.False(t, m.Can(tt.trigger))
			assert.ErrorIs(t, m.Fire(tt.trigger), ErrIllegalTransition)
			assert.Equal(t, before, m.State())
		})
	}
}

func TestMachineCloseFromAnyState(t *testing.T) {
	path := []Trigger{TriggerDial, TriggerDialed, TriggerConnAck, TriggerSubscribe, TriggerSubAck, TriggerStart}
	for i := 0; i <= len(path); i++ {
		m := NewMachine(nil)
		for _, tr := range path[:i] {
			require.NoError(t, m.Fire(tr))
		}
		require.NoError(t, m.Fire(TriggerClose))
		assert.Equal(t, StateClosed, m.State())
	}
}
