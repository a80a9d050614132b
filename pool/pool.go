// Copyright 2023 Rivian Automotive, Inc.
// Licensed under the Apache License, Version 2.0 (the “License”);
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an “AS IS” BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pool provides a worker-pool handle that runs tasks in parallel,
// stops scheduling new ones on first failure, and joins in-flight tasks
// before re-raising that failure. Callers take a Pool as an injected
// dependency rather than reaching for a process-wide singleton.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool runs tasks concurrently, honoring stop-on-first-failure semantics.
// A zero Pool is not usable; use New.
type Pool struct {
	g   *errgroup.Group
	ctx context.Context
}

// New returns a Pool bound to ctx. limit, if > 0, caps the number of tasks
// running concurrently; 0 means unbounded.
func New(ctx context.Context, limit int) *Pool {
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &Pool{g: g, ctx: ctx}
}

// Context returns the pool's context, cancelled once any task fails.
func (p *Pool) Context() context.Context { return p.ctx }

// Go schedules fn to run, possibly in a new goroutine. Once the pool's
// context is cancelled (a task has failed), tasks that have not started
// yet skip fn and return the context's error; Wait still reports the
// first error.
func (p *Pool) Go(fn func() error) {
	p.g.Go(func() error {
		if err := p.ctx.Err(); err != nil {
			return err
		}
		return fn()
	})
}

// Wait blocks until every scheduled task has returned, then returns the
// first non-nil error encountered, if any.
func (p *Pool) Wait() error { return p.g.Wait() }
