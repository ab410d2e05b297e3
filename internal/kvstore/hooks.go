// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kvstore

import (
	"context"
	"time"

	"github.com/ammp-edge/ae-agent/internal/log"
)

type ctxKey string

const beginKey ctxKey = "begin"

// queryHooks satisfies sqlhooks.Hooks, logging every query and its
// elapsed time at debug level.
type queryHooks struct{}

func (h *queryHooks) Before(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	log.Debugf("kvstore: query %s %q", query, args)
	return context.WithValue(ctx, beginKey, time.Now()), nil
}

func (h *queryHooks) After(ctx context.Context, query string, args ...interface{}) (context.Context, error) {
	if begin, ok := ctx.Value(beginKey).(time.Time); ok {
		log.Debugf("kvstore: took %s", time.Since(begin))
	}
	return ctx, nil
}
