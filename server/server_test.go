// Copyright 2025 The swotrace Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swotrace/swotrace/confengine"
)

func TestNewDisabled(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "Missing", content: "logger:\n  level: info\n"},
		{name: "Disabled", content: "server:\n  enabled: false\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := confengine.LoadContent([]byte(tt.content))
			require.NoError(t, err)

			s, err := New(conf)
			assert.NoError(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestRoutes(t *testing.T) {
	s := NewWithConfig(Config{Enabled: true, Pprof: true})
	s.RegisterGetRoute("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})
	s.RegisterPostRoute("/-/reset", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{method: http.MethodGet, path: "/ping", code: http.StatusOK},
		{method: http.MethodPost, path: "/ping", code: http.StatusMethodNotAllowed},
		{method: http.MethodPost, path: "/-/reset", code: http.StatusAccepted},
		{method: http.MethodGet, path: "/debug/pprof/cmdline", code: http.StatusOK},
		{method: http.MethodGet, path: "/unknown", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestListenAndServe(t *testing.T) {
	s := NewWithConfig(Config{Enabled: true, Address: "127.0.0.1:0"})
	s.RegisterGetRoute("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pong"))
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	assert.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 10*time.Millisecond)

	rsp, err := http.Get("http://" + s.Addr().String() + "/ping")
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	assert.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-errCh)
}
