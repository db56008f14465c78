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
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/internal/splitio"
	"github.com/swotrace/swotrace/operator"
	"github.com/swotrace/swotrace/protocol/tcl"
	"github.com/swotrace/swotrace/server"
)

// openocd 模拟 Tcl Server 所有命令均执行成功
type openocd struct {
	ln      net.Listener
	mut     sync.Mutex
	conn    net.Conn
	scripts []string
}

func newOpenOCD(t *testing.T) *openocd {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	o := &openocd{ln: ln}
	go o.serve()
	t.Cleanup(func() {
		ln.Close()
		o.closeConn()
	})
	return o
}

func (o *openocd) serve() {
	conn, err := o.ln.Accept()
	if err != nil {
		return
	}
	o.mut.Lock()
	o.conn = conn
	o.mut.Unlock()

	splitter := splitio.NewSplitter(tcl.Terminator, 0)
	buf := make([]byte, 1024)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		splitter.Feed(buf[:n], func(frame []byte) {
			script := string(frame)
			o.mut.Lock()
			o.scripts = append(o.scripts, script)
			o.mut.Unlock()

			resp := ""
			if strings.HasPrefix(script, "catch {") {
				resp = "0"
			}
			o.write([]byte(resp))
		})
	}
}

func (o *openocd) write(b []byte) {
	o.mut.Lock()
	defer o.mut.Unlock()
	if o.conn == nil {
		return
	}
	o.conn.Write(append(append([]byte{}, b...), tcl.Terminator))
}

func (o *openocd) closeConn() {
	o.mut.Lock()
	defer o.mut.Unlock()
	if o.conn != nil {
		o.conn.Close()
	}
}

func (o *openocd) Scripts() []string {
	o.mut.Lock()
	defer o.mut.Unlock()
	return append([]string(nil), o.scripts...)
}

// Commands 返回以 catch 方式执行的命令
func (o *openocd) Commands() []string {
	var cmds []string
	for _, s := range o.Scripts() {
		if strings.HasPrefix(s, "catch {") {
			cmds = append(cmds, strings.TrimSuffix(strings.TrimPrefix(s, "catch {"), "} swotrace_result"))
		}
	}
	return cmds
}

func (o *openocd) hasScript(want string) bool {
	for _, s := range o.Scripts() {
		if s == want {
			return true
		}
	}
	return false
}

func loadContent(t *testing.T, content string) *confengine.Config {
	conf, err := confengine.LoadContent([]byte(content))
	require.NoError(t, err)
	return conf
}

func newTestController(t *testing.T, o *openocd, extra string) *Controller {
	content := `
logger:
  stderr: true
  level: error
openocd:
  address: ` + o.ln.Addr().String() + `
  commandTimeout: 1s
target:
  clockHz: 16000000
exporter:
  console:
    enabled: false
  watch:
    enabled: true
` + extra

	c, err := New(loadContent(t, content), common.GetBuildInfo())
	require.NoError(t, err)
	c.console = io.Discard
	return c
}

func TestLoadConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg, err := loadConfig(loadContent(t, "logger:\n  stderr: true\n"))
		require.NoError(t, err)

		assert.Equal(t, int64(defaultClockHz), cfg.Target.ClockHz)
		assert.Equal(t, DefaultStreams(), cfg.Streams.Channels)
		assert.Equal(t, "localhost:6666", cfg.OpenOCD.Address)

		cmds, err := cfg.Target.Render(cfg.Target.InitCommands)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"init",
			"tpiu config internal - uart off 80000000",
			"itm ports on",
			"tcl_trace on",
		}, cmds)
	})

	t.Run("SwoHz", func(t *testing.T) {
		cfg, err := loadConfig(loadContent(t, "target:\n  clockHz: 72000000\n  swoHz: 2000000\n"))
		require.NoError(t, err)

		cmds, err := cfg.Target.Render(cfg.Target.InitCommands)
		require.NoError(t, err)
		assert.Equal(t, "tpiu config internal - uart off 72000000 2000000", cmds[1])
	})

	t.Run("Streams", func(t *testing.T) {
		content := `
streams:
  maxLineLength: 1024
  channels:
    - channel: 5
      prefix: "DEBUG: "
`
		cfg, err := loadConfig(loadContent(t, content))
		require.NoError(t, err)
		assert.Equal(t, 1024, cfg.Streams.MaxLineLength)
		require.Len(t, cfg.Streams.Channels, 1)
		assert.Equal(t, 5, cfg.Streams.Channels[0].Channel)
		assert.Equal(t, "DEBUG: ", cfg.Streams.Channels[0].Prefix)
	})

	t.Run("Invalid", func(t *testing.T) {
		content := `
target:
  clockHz: -1
  initCommands: ["{{ .Nope "]
dispatcher:
  flashAddress: nowhere
operator:
  bindings:
    ctrl-r: explode
`
		_, err := loadConfig(loadContent(t, content))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clockHz must be positive")
		assert.Contains(t, err.Error(), "invalid flash address")
		assert.Contains(t, err.Error(), "unknown event")
		assert.Contains(t, err.Error(), "parse command")
	})
}

func TestControllerInvalidConfig(t *testing.T) {
	o := newOpenOCD(t)
	content := `
logger:
  stderr: true
openocd:
  address: ` + o.ln.Addr().String() + `
streams:
  channels:
    - channel: 1
    - channel: 1
`
	_, err := New(loadContent(t, content), common.GetBuildInfo())
	assert.Error(t, err)
}

func TestControllerUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	content := "logger:\n  stderr: true\nopenocd:\n  address: " + addr + "\n  dialTimeout: 1s\n"
	_, err = New(loadContent(t, content), common.GetBuildInfo())
	assert.Error(t, err)
}

func TestControllerLifecycle(t *testing.T) {
	o := newOpenOCD(t)
	c := newTestController(t, o, "")
	require.NoError(t, c.Start())

	assert.Equal(t, []string{
		"init",
		"tpiu config internal - uart off 16000000",
		"itm ports on",
		"tcl_trace on",
	}, o.Commands())

	queue := c.exp.Lines().Subscribe(16)
	defer c.exp.Lines().Unsubscribe(queue)

	o.write(tcl.EncodeTrace([]byte{0x01, 'H', 0x01, 'i', 0x01, '\n'}))
	o.write(tcl.EncodeTrace([]byte{0x09, 'w', 0x09, '\n'}))

	line, ok := queue.PopTimeout(time.Second)
	require.True(t, ok)
	assert.Equal(t, "Hi", line.Text)
	assert.Equal(t, 0, line.Channel)

	line, ok = queue.PopTimeout(time.Second)
	require.True(t, ok)
	assert.Equal(t, "WARNING: w", line.Text)

	// 0 号通道开启了回显 1 号通道没有
	assert.Eventually(t, func() bool { return o.hasScript(`puts "Hi"`) }, time.Second, 10*time.Millisecond)
	assert.False(t, o.hasScript(`puts "WARNING: w"`))

	assert.True(t, c.Offer(operator.Event{Kind: operator.KindReset, Source: operator.SourceKey}))
	assert.Eventually(t, func() bool {
		cmds := o.Commands()
		return cmds[len(cmds)-1] == "reset"
	}, time.Second, 10*time.Millisecond)

	assert.NoError(t, c.Stop())
	cmds := o.Commands()
	assert.Equal(t, "tcl_trace off", cmds[len(cmds)-1])

	select {
	case <-c.Done():
	default:
		t.Fatal("controller not done after stop")
	}
}

func TestControllerQuitEvent(t *testing.T) {
	o := newOpenOCD(t)
	c := newTestController(t, o, "")
	require.NoError(t, c.Start())
	defer c.Stop()

	assert.True(t, c.Offer(operator.Event{Kind: operator.KindQuit, Source: operator.SourceKey}))
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("controller not done after quit")
	}
}

func TestControllerConnectionClosed(t *testing.T) {
	o := newOpenOCD(t)
	c := newTestController(t, o, "")
	require.NoError(t, c.Start())

	var buf bytes.Buffer
	c.cmut.Lock()
	c.console = &buf
	c.cmut.Unlock()

	o.closeConn()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("controller not done after connection closed")
	}
	assert.NoError(t, c.Stop())

	c.cmut.Lock()
	defer c.cmut.Unlock()
	assert.Contains(t, buf.String(), "Connection Closed")
}

func TestControllerRoutes(t *testing.T) {
	o := newOpenOCD(t)
	c := newTestController(t, o, "operator:\n  queueSize: 1\n")
	c.svr = server.NewWithConfig(server.Config{Enabled: true})
	c.setupServer()
	defer c.Stop()

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{method: http.MethodPost, path: "/-/reset", code: http.StatusAccepted},
		{method: http.MethodPost, path: "/-/flash", code: http.StatusServiceUnavailable},
		{method: http.MethodPost, path: "/-/logger?level=debug", code: http.StatusOK},
		{method: http.MethodGet, path: "/metrics", code: http.StatusOK},
		{method: http.MethodGet, path: "/-/reset", code: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			c.svr.Handler().ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	ev := <-c.events.Events()
	assert.Equal(t, operator.KindReset, ev.Kind)
	assert.Equal(t, operator.SourceHTTP, ev.Source)
}

func TestControllerRouteWatch(t *testing.T) {
	o := newOpenOCD(t)
	c := newTestController(t, o, "")
	c.svr = server.NewWithConfig(server.Config{Enabled: true, Address: "127.0.0.1:0"})
	require.NoError(t, c.Start())
	defer c.Stop()

	ts := httptest.NewServer(c.svr.Handler())
	defer ts.Close()

	go func() {
		// 等待订阅建立后再推送
		assert.Eventually(t, func() bool { return c.exp.Lines().Num() > 0 }, time.Second, 5*time.Millisecond)
		o.write(tcl.EncodeTrace([]byte{0x11, 'E', 0x11, '\n'}))
	}()

	rsp, err := http.Get(ts.URL + "/watch?max_message=1&timeout=2s")
	require.NoError(t, err)
	defer rsp.Body.Close()

	b, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"text":"ERROR: E"`)
	assert.Contains(t, string(b), `"channel":2`)
}
