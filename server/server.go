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
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/logger"
)

type Config struct {
	Enabled bool          `config:"enabled"`
	Address string        `config:"address"`
	Pprof   bool          `config:"pprof"`
	Timeout time.Duration `config:"timeout"`
}

func (c *Config) Validate() {
	if c.Address == "" {
		c.Address = "localhost:9091"
	}
}

type Server struct {
	config Config
	router *mux.Router
	server *http.Server

	mut  sync.Mutex
	addr net.Addr
}

// New 创建并返回 Server 实例
//
// 当 .Enabled 为 false 或者未配置 server 时会返回空指针 调用方需先判断
func New(conf *confengine.Config) (*Server, error) {
	var config Config
	if err := conf.UnpackChildOptional("server", &config); err != nil {
		return nil, err
	}
	if !config.Enabled {
		return nil, nil
	}
	return NewWithConfig(config), nil
}

func NewWithConfig(config Config) *Server {
	config.Validate()

	router := mux.NewRouter()
	s := &Server{
		config: config,
		router: router,
		server: &http.Server{
			Handler:     router,
			ReadTimeout: config.Timeout,
			// 不设置 WriteTimeout /watch 为长连接
		},
	}
	if config.Pprof {
		s.registerPprofRoutes()
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回实际监听的地址 未启动时返回 nil
func (s *Server) Addr() net.Addr {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.addr
}

func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}

	s.mut.Lock()
	s.addr = l.Addr()
	s.mut.Unlock()

	logger.Infof("server listening on %s", l.Addr())
	err = s.server.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) RegisterGetRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodGet).Path(path).HandlerFunc(f)
}

func (s *Server) RegisterPostRoute(path string, f http.HandlerFunc) {
	s.router.Methods(http.MethodPost).Path(path).HandlerFunc(f)
}

func (s *Server) registerPprofRoutes() {
	s.RegisterGetRoute("/debug/pprof/cmdline", pprof.Cmdline)
	s.RegisterGetRoute("/debug/pprof/profile", pprof.Profile)
	s.RegisterGetRoute("/debug/pprof/symbol", pprof.Symbol)
	s.RegisterGetRoute("/debug/pprof/trace", pprof.Trace)
	s.RegisterGetRoute("/debug/pprof/{other}", pprof.Index)
}
