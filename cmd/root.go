// Copyright 2025 The packetd Authors
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

// Package cmd 实现 streamframerctl 命令行入口
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/streamframer/common"
)

var rootCmd = &cobra.Command{
	Use:     "streamframerctl",
	Short:   "Encode and decode length-prefixed streamframer frames",
	Version: common.Version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := common.GetBuildInfo()
		fmt.Printf("version=%s githash=%s built=%s\n", info.Version, info.GitHash, info.Time)
	},
}

// Execute 运行 streamframerctl 根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
