// Copyright (C) ammp. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package activation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivateSucceedsOnFirstTry(t *testing.T) {
	var sawAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"access_key":"key-123","message":"step one ok"}`))
		case http.MethodPost:
			sawAuth.Store(r.Header.Get("Authorization"))
			w.Write([]byte(`{"message":"step two ok"}`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	key, err := c.Activate(context.Background(), "node-1")
	require.NoError(t, err)
	assert.Equal(t, "key-123", key)
	assert.Equal(t, "key-123", sawAuth.Load())
}

func TestActivateRetriesTransientFailureThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if atomic.AddInt32(&attempts, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"access_key":"key-456","message":"ok"}`))
			return
		}
		w.Write([]byte(`{"message":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	key, err := c.Activate(context.Background(), "node-2")
	require.NoError(t, err)
	assert.Equal(t, "key-456", key)
	assert.GreaterOrEqual(t, int(atomic.LoadInt32(&attempts)), 3)
}

func TestActivateGivesUpAfterContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(srv.URL)
	_, err := c.Activate(ctx, "node-3")
	assert.Error(t, err)
}
