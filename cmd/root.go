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
	"os"

	"github.com/spf13/cobra"

	"github.com/swotrace/swotrace/common"
)

var rootCmd = &cobra.Command{
	Use:   common.App,
	Short: "Decode ITM/SWO trace from OpenOCD and drive the debug adapter",
	Long: common.App + ` connects to the OpenOCD Tcl server, decodes the ITM software
trace into per-channel text lines, and sends reset/flash commands on
operator request.`,
	SilenceUsage: true,
}

// Execute 执行命令行 出错时以非 0 退出
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
