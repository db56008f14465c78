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

package exporter_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/exporter"
	_ "github.com/swotrace/swotrace/exporter/sinker/console"
	_ "github.com/swotrace/swotrace/exporter/sinker/echo"
	_ "github.com/swotrace/swotrace/exporter/sinker/file"
	_ "github.com/swotrace/swotrace/exporter/sinker/watch"
	"github.com/swotrace/swotrace/stream"
)

type recordSender struct {
	mut     sync.Mutex
	scripts []string
}

func (r *recordSender) Send(script string) error {
	r.mut.Lock()
	defer r.mut.Unlock()
	r.scripts = append(r.scripts, script)
	return nil
}

func names(sinkers []stream.Sinker) []string {
	var ret []string
	for _, s := range sinkers {
		ret = append(ret, s.Name())
	}
	return ret
}

func TestExporterSinkersFor(t *testing.T) {
	sender := &recordSender{}
	exp, err := exporter.NewWithConfig(exporter.Config{
		Console: exporter.ConsoleConfig{Enabled: true},
		Watch:   exporter.WatchConfig{Enabled: true},
	}, sender)
	require.NoError(t, err)
	defer exp.Close()

	assert.Equal(t, []string{"console", "watch"}, names(exp.SinkersFor(stream.Config{Channel: 1})))
	assert.Equal(t, []string{"console", "watch", "echo"}, names(exp.SinkersFor(stream.Config{Channel: 2, Echo: true})))
}

func TestExporterWithoutSender(t *testing.T) {
	exp, err := exporter.NewWithConfig(exporter.Config{}, nil)
	require.NoError(t, err)
	defer exp.Close()

	assert.Empty(t, exp.SinkersFor(stream.Config{Channel: 0, Echo: true}))
}

func TestExporterFromConfig(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "trace.log")

	content := `
exporter:
  console:
    enabled: false
  file:
    enabled: true
    format: json
    filename: ` + filename + `
`
	conf, err := confengine.LoadContent([]byte(content))
	require.NoError(t, err)

	exp, err := exporter.New(conf, nil)
	require.NoError(t, err)

	sinkers := exp.SinkersFor(stream.Config{Channel: 0})
	assert.Equal(t, []string{"file"}, names(sinkers))

	line := common.Line{Channel: 0, Text: "hello", Time: time.Now()}
	assert.NoError(t, sinkers[0].Sink(line))
	exp.Close()

	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"text":"hello"`)
}

func TestExporterDefaultConfig(t *testing.T) {
	exp, err := exporter.New(nil, nil)
	require.NoError(t, err)
	defer exp.Close()

	assert.Equal(t, []string{"console"}, names(exp.SinkersFor(stream.Config{})))
}

func TestExporterWatchPublish(t *testing.T) {
	exp, err := exporter.NewWithConfig(exporter.Config{
		Watch: exporter.WatchConfig{Enabled: true},
	}, nil)
	require.NoError(t, err)
	defer exp.Close()

	q := exp.Lines().Subscribe(8)
	defer exp.Lines().Unsubscribe(q)

	sinkers := exp.SinkersFor(stream.Config{Channel: 3})
	require.Len(t, sinkers, 1)
	assert.NoError(t, sinkers[0].Sink(common.Line{Channel: 3, Text: "w"}))

	line, ok := q.PopTimeout(time.Second)
	assert.True(t, ok)
	assert.Equal(t, "w", line.Text)
	assert.Equal(t, 3, line.Channel)
}
