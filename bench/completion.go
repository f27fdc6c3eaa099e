// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package bench

import (
	"context"

	"github.com/absmach/mqttbench/config"
)

// Completion receives the outcome of a run. Exactly one method is called,
// once, per run.
type Completion interface {
	Succeed()
	Fail(err error)
	Exit(code int)
}

// Entry is the signature of a runnable scenario.
type Entry func(ctx context.Context, cfg *config.Config, done Completion)
