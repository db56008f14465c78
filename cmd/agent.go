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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/swotrace/swotrace/common"
	"github.com/swotrace/swotrace/confengine"
	"github.com/swotrace/swotrace/controller"
	"github.com/swotrace/swotrace/internal/sigs"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run swotrace with a configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := confengine.LoadConfigPath(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		runController(cfg)
	},
	Example: "# swotrace agent --config swotrace.yaml",
}

// runController 运行直到收到终止信号 调试器断开或者 quit 事件
func runController(cfg *confengine.Config) {
	ctr, err := controller.New(cfg, common.GetBuildInfo())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create controller: %v\n"+
			"Note: make sure OpenOCD is running with its Tcl server enabled (tcl_port)\n", err)
		os.Exit(1)
	}
	if err := ctr.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start controller: %v\n", err)
		ctr.Stop()
		os.Exit(1)
	}

	ctx, cancel := sigs.WithTerminate(context.Background())
	defer cancel()

	select {
	case <-ctx.Done():
		fmt.Println("Terminating...")
	case <-ctr.Done():
	}

	if err := ctr.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to stop controller: %v\n", err)
	}
}

var configPath string

func init() {
	agentCmd.Flags().StringVar(&configPath, "config", common.App+".yaml", "Configuration file path")
	rootCmd.AddCommand(agentCmd)
}
