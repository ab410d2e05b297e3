// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kvstore

// Async wraps a Store so callers can dispatch kvstore operations without
// blocking on SQLite I/O themselves: each call runs on its own goroutine
// and reports its result on a channel. The underlying Store already
// serializes access with its own mutex, so Async adds no locking of its
// own — it only moves the blocking work off the caller's goroutine.
type Async struct {
	store *Store
}

func NewAsync(store *Store) *Async {
	return &Async{store: store}
}

type SetResult struct {
	Err error
}

// Set dispatches a Set call and returns a channel that receives its
// result once the write completes.
func (a *Async) Set(key string, value interface{}) <-chan SetResult {
	ch := make(chan SetResult, 1)
	go func() {
		ch <- SetResult{Err: a.store.Set(key, value)}
	}()
	return ch
}

type GetResult struct {
	Found bool
	Err   error
}

// Get dispatches a Get call, unmarshaling into out once the read
// completes. out must not be read until the returned channel fires.
func (a *Async) Get(key string, out interface{}) <-chan GetResult {
	ch := make(chan GetResult, 1)
	go func() {
		found, err := a.store.Get(key, out)
		ch <- GetResult{Found: found, Err: err}
	}()
	return ch
}

// SetMany dispatches a batched upsert and returns a channel that
// receives its result once the transaction commits.
func (a *Async) SetMany(kv map[string]interface{}) <-chan SetResult {
	ch := make(chan SetResult, 1)
	go func() {
		ch <- SetResult{Err: a.store.SetMany(kv)}
	}()
	return ch
}
