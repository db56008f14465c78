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

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/internal/json"
)

type watchCmdConfig struct {
	Address       string
	ClockHz       int64
	SwoHz         int64
	Streams       []string
	MaxLineLength int
	CRLF          bool
	NoKeys        bool
	Image         string
	FlashAddress  string
	FlashDriver   string
	WatchImage    bool
	TraceFile     string
	TraceFormat   string
	Server        string
	LogFile       string
	LogLevel      string
}

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

func (c *watchCmdConfig) Yaml() ([]byte, error) {
	streams, err := decodeStreams(c.Streams)
	if err != nil {
		return nil, err
	}

	text := `
logger:
  level: {{ .LogLevel }}
  filename: {{ quote .LogFile }}

openocd:
  address: {{ quote .Address }}

target:
  clockHz: {{ .ClockHz }}
  swoHz: {{ .SwoHz }}

streams:
  maxLineLength: {{ .MaxLineLength }}
  channels:
{{- range .Streams }}
    - channel: {{ .Channel }}
      prefix: {{ quote .Prefix }}
      echo: {{ .Echo }}
{{- end }}

exporter:
  console:
    enabled: true
    crlf: {{ .CRLF }}
  file:
    enabled: {{ ne .TraceFile "" }}
    filename: {{ quote .TraceFile }}
    format: {{ .TraceFormat }}
  watch:
    enabled: {{ ne .Server "" }}

operator:
  keys: {{ not .NoKeys }}

dispatcher:
  image: {{ quote .Image }}
  flashAddress: {{ quote .FlashAddress }}
  flashDriver: {{ quote .FlashDriver }}
  watchImage: {{ .WatchImage }}

server:
  enabled: {{ ne .Server "" }}
  address: {{ quote .Server }}
`
	tpl, err := template.New("Config").Funcs(template.FuncMap{"quote": quote}).Parse(text)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = tpl.Execute(&buf, map[string]any{
		"Address":       c.Address,
		"ClockHz":       c.ClockHz,
		"SwoHz":         c.SwoHz,
		"Streams":       streams,
		"MaxLineLength": c.MaxLineLength,
		"CRLF":          c.CRLF,
		"NoKeys":        c.NoKeys,
		"Image":         c.Image,
		"FlashAddress":  c.FlashAddress,
		"FlashDriver":   c.FlashDriver,
		"WatchImage":    c.WatchImage,
		"TraceFile":     c.TraceFile,
		"TraceFormat":   c.TraceFormat,
		"Server":        c.Server,
		"LogFile":       c.LogFile,
		"LogLevel":      c.LogLevel,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var watchConfig watchCmdConfig

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to OpenOCD and print the ITM trace of each channel",
	Run: func(cmd *cobra.Command, args []string) {
		content, err := watchConfig.Yaml()
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid flags: %v\n", err)
			os.Exit(1)
		}

		cfg, err := confengine.LoadContent(content)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		runController(cfg)
	},
	Example: "# swotrace watch --clock 80000000 --stream '0;;true' --stream '1;WARNING: ' --stream '2;ERROR: ;true'",
}

func init() {
	watchCmd.Flags().StringVar(&watchConfig.Address, "openocd", "localhost:6666", "OpenOCD Tcl server address")
	watchCmd.Flags().Int64Var(&watchConfig.ClockHz, "clock", 80000000, "Target CPU clock in Hz")
	watchCmd.Flags().Int64Var(&watchConfig.SwoHz, "swo", 0, "SWO pin frequency in Hz, 0 lets OpenOCD pick")
	watchCmd.Flags().StringArrayVar(&watchConfig.Streams, "stream", nil, "Trace stream in 'channel;prefix[;echo]' format, multiple streams supported")
	watchCmd.Flags().IntVar(&watchConfig.MaxLineLength, "max-line-length", 0, "Force a line out after this many bytes without newline, 0 for unlimited")
	watchCmd.Flags().BoolVar(&watchConfig.CRLF, "crlf", false, "Terminate console lines with CRLF")
	watchCmd.Flags().BoolVar(&watchConfig.NoKeys, "no-keys", false, "Don't read key bindings from the terminal")
	watchCmd.Flags().StringVar(&watchConfig.Image, "image", "main.bin", "Firmware image to program")
	watchCmd.Flags().StringVar(&watchConfig.FlashAddress, "flash.address", "0x08000000", "Flash address to write the image to")
	watchCmd.Flags().StringVar(&watchConfig.FlashDriver, "flash.driver", "stm32l4x", "Flash driver used by lock/unlock")
	watchCmd.Flags().BoolVar(&watchConfig.WatchImage, "watch-image", false, "Program the flash when the image changes")
	watchCmd.Flags().StringVar(&watchConfig.TraceFile, "trace.file", "", "Also write trace lines to this file")
	watchCmd.Flags().StringVar(&watchConfig.TraceFormat, "trace.format", "text", "Trace file format [text|json]")
	watchCmd.Flags().StringVar(&watchConfig.Server, "server", "", "HTTP admin server address, empty to disable")
	watchCmd.Flags().StringVar(&watchConfig.LogFile, "log.file", common.App+".log", "Path to log file")
	watchCmd.Flags().StringVar(&watchConfig.LogLevel, "log.level", "info", "Log level [debug|info|warn|error]")
	rootCmd.AddCommand(watchCmd)
}
