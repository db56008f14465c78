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
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/internal/json"
	"github.com/swotrace/swotrace/logger"
	"github.com/swotrace/swotrace/pipeline"
	"github.com/swotrace/swotrace/protocol/itm"
	"github.com/swotrace/swotrace/protocol/tcl"
	"github.com/swotrace/swotrace/stream"
)

const (
	inputRaw = "raw"
	inputTcl = "tcl"
)

type decodeCmdConfig struct {
	Input         string
	Streams       []string
	MaxLineLength int
	JSON          bool
	Stats         bool
}

var decodeConfig decodeCmdConfig

// writerSinker 离线解析时将行写入 out 回显等依赖调试器的 Sinker 没有意义
type writerSinker struct {
	out     io.Writer
	encoder json.Encoder
	asJSON  bool
}

func newWriterSinker(out io.Writer, asJSON bool) *writerSinker {
	return &writerSinker{
		out:     out,
		encoder: json.NewEncoder(out),
		asJSON:  asJSON,
	}
}

func (s *writerSinker) Name() string {
	return "writer"
}

func (s *writerSinker) Sink(line common.Line) error {
	if s.asJSON {
		return s.encoder.Encode(line)
	}
	_, err := io.WriteString(s.out, line.Text+"\n")
	return err
}

// decode 离线解析 r 中的 trace 数据 行输出到 out
func decode(cfg decodeCmdConfig, r io.Reader, out io.Writer) (itm.Stats, error) {
	channels, err := decodeStreams(cfg.Streams)
	if err != nil {
		return itm.Stats{}, err
	}
	sinker := newWriterSinker(out, cfg.JSON)

	streams, err := stream.Build(stream.Configs{
		MaxLineLength: cfg.MaxLineLength,
		Channels:      channels,
	}, func(stream.Config) []stream.Sinker {
		return []stream.Sinker{sinker}
	})
	if err != nil {
		return itm.Stats{}, err
	}

	switch cfg.Input {
	case inputRaw, "":
	case inputTcl:
		r = tcl.NewTraceReader(r)
	default:
		return itm.Stats{}, errors.Errorf("unknown input format %q", cfg.Input)
	}

	pl := pipeline.New(streams)
	if _, err := pl.ReadFrom(r); err != nil {
		return pl.Stats(), err
	}
	return pl.Stats(), nil
}

var decodeCmd = &cobra.Command{
	Use:   "decode [file]",
	Short: "Decode a captured ITM trace file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logger.SetOptions(logger.Options{Stderr: true, Level: "warn"})

		var r io.Reader = os.Stdin
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to open trace file: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			r = f
		}

		stats, err := decode(decodeConfig, r, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to decode: %v\n", err)
			os.Exit(1)
		}

		if decodeConfig.Stats {
			fmt.Fprintf(os.Stderr, "bytes: %d\n", stats.Bytes)
			for _, k := range itm.Kinds() {
				fmt.Fprintf(os.Stderr, "%s: %d\n", k, stats.Count(k))
			}
		}
	},
	Example: "# swotrace decode --input tcl --stream '0;' --stream '1;WARNING: ' session.bin",
}

func init() {
	decodeCmd.Flags().StringVar(&decodeConfig.Input, "input", inputRaw, "Input format [raw|tcl], tcl for a recorded Tcl server session")
	decodeCmd.Flags().StringArrayVar(&decodeConfig.Streams, "stream", nil, "Trace stream in 'channel;prefix[;echo]' format, multiple streams supported")
	decodeCmd.Flags().IntVar(&decodeConfig.MaxLineLength, "max-line-length", 0, "Force a line out after this many bytes without newline, 0 for unlimited")
	decodeCmd.Flags().BoolVar(&decodeConfig.JSON, "json", false, "Print lines as JSON objects")
	decodeCmd.Flags().BoolVar(&decodeConfig.Stats, "stats", false, "Print packet statistics to stderr")
	rootCmd.AddCommand(decodeCmd)
}
