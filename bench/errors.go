// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import "errors"

// Benchmark errors.
var (
	ErrInvalidTarget     = errors.New("target must be at least 1")
	ErrInvalidCredit     = errors.New("credit must be at least 1")
	ErrInvalidUnitSize   = errors.New("unit size must be at least 1")
	ErrNotStarted        = errors.New("pipeline not started")
	ErrAlreadyStarted    = errors.New("pipeline already started")
	ErrUnexpectedUnit    = errors.New("unit received with nothing pending")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrUnexpectedData    = errors.New("unexpected data")
	ErrEchoMismatch      = errors.New("echoed unit differs from the one sent")
)
