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

package controller

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/internal/json"
	"github.com/swotrace/swotrace/logger"
	"github.com/swotrace/swotrace/operator"
)

const (
	wsPingInterval  = 30 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsPollInterval  = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (c *Controller) setupServer() {
	if c.svr == nil {
		return
	}

	// Admin Routes
	c.svr.RegisterPostRoute("/-/logger", c.routeLogger)
	c.svr.RegisterPostRoute("/-/reset", c.routeEvent(operator.KindReset))
	c.svr.RegisterPostRoute("/-/flash", c.routeEvent(operator.KindFlash))
	c.svr.RegisterPostRoute("/-/lock", c.routeEvent(operator.KindLock))
	c.svr.RegisterPostRoute("/-/unlock", c.routeEvent(operator.KindUnlock))

	// Watch Routes
	c.svr.RegisterGetRoute("/watch", c.routeWatch)
	c.svr.RegisterGetRoute("/watch/ws", c.routeWatchWebsocket)

	// Metrics Routes
	c.svr.RegisterGetRoute("/metrics", c.routeMetrics)
}

func (c *Controller) recordMetrics() {
	uptime.Set(float64(time.Now().Unix() - common.Started()))
	buildInfo.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
}

func (c *Controller) routeMetrics(w http.ResponseWriter, r *http.Request) {
	c.recordMetrics()
	promhttp.Handler().ServeHTTP(w, r)
}

func (c *Controller) routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	w.Write([]byte(`{"status": "success"}`))
}

func (c *Controller) routeEvent(kind operator.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.events.Offer(operator.Event{Kind: kind, Source: operator.SourceHTTP}) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "busy"}`))
			return
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status": "accepted"}`))
	}
}

func (c *Controller) routeWatch(w http.ResponseWriter, r *http.Request) {
	if !c.exp.WatchEnabled() {
		http.Error(w, "watch exporter disabled", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	var maxMessage int
	maxMessage, _ = strconv.Atoi(r.URL.Query().Get("max_message"))
	if maxMessage <= 0 {
		maxMessage = 100
	}

	var timeout time.Duration
	timeout, _ = time.ParseDuration(r.URL.Query().Get("timeout"))
	if timeout <= 0 {
		timeout = time.Second * 5
	}

	queue := c.exp.Lines().Subscribe(100)
	defer c.exp.Lines().Unsubscribe(queue)

	w.Header().Set("Content-Type", "application/x-ndjson")
	encoder := json.NewEncoder(w)
	for i := 0; i < maxMessage; i++ {
		line, ok := queue.PopTimeout(timeout)
		if !ok {
			return
		}
		if err := encoder.Encode(line); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (c *Controller) routeWatchWebsocket(w http.ResponseWriter, r *http.Request) {
	if !c.exp.WatchEnabled() {
		http.Error(w, "watch exporter disabled", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	queue := c.exp.Lines().Subscribe(100)
	defer c.exp.Lines().Unsubscribe(queue)

	// 读取并丢弃客户端消息 客户端关闭时结束推送
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lastPing := time.Now()
	for {
		select {
		case <-closed:
			return
		case <-c.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		default:
		}

		line, ok := queue.PopTimeout(wsPollInterval)
		if !ok {
			if time.Since(lastPing) < wsPingInterval {
				continue
			}
			lastPing = time.Now()
			conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		b, err := json.Marshal(line)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}
