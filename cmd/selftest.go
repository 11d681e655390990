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

package cmd

import (
	"bytes"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"

	"github.com/packetd/streamframer/confengine"
	"github.com/packetd/streamframer/streamframer"
)

var selftestFixtures []string

// fixture 描述一组用于回归验证的 round-trip 用例
type fixture struct {
	Name       string   `mapstructure:"name"`
	Payloads   []string `mapstructure:"payloads"`
	ChunkSizes []int    `mapstructure:"chunkSizes"`
}

var selftestCmd = &cobra.Command{
	Use:     "selftest",
	Short:   "Run the round-trip law (Writer then Parser reproduces the original messages) against YAML fixtures",
	Example: "# streamframerctl selftest --fixture fixtures/basic.yaml --fixture fixtures/edge_cases.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(selftestFixtures) == 0 {
			return fmt.Errorf("selftest: at least one --fixture is required")
		}

		var merr *multierror.Error
		var total int
		for _, path := range selftestFixtures {
			fixtures, err := loadFixtures(path)
			if err != nil {
				merr = multierror.Append(merr, fmt.Errorf("%s: %w", path, err))
				continue
			}
			for _, f := range fixtures {
				total++
				if err := runFixture(f); err != nil {
					merr = multierror.Append(merr, fmt.Errorf("%s/%s: %w", path, f.Name, err))
				}
			}
		}

		fmt.Printf("selftest: ran %d fixture case(s)\n", total)
		if err := merr.ErrorOrNil(); err != nil {
			return err
		}
		return nil
	},
}

func loadFixtures(path string) ([]fixture, error) {
	cfg, err := confengine.LoadConfigPath(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var raw struct {
		Fixtures []map[string]any `config:"fixtures"`
	}
	if err := cfg.Unpack(&raw); err != nil {
		return nil, fmt.Errorf("unpack config: %w", err)
	}

	fixtures := make([]fixture, 0, len(raw.Fixtures))
	for i, m := range raw.Fixtures {
		var f fixture
		if err := mapstructure.Decode(m, &f); err != nil {
			return nil, fmt.Errorf("decode fixture %d: %w", i, err)
		}
		if len(f.ChunkSizes) == 0 {
			f.ChunkSizes = []int{1, 3, streamframer.HeaderSize, 64}
		}
		fixtures = append(fixtures, f)
	}
	return fixtures, nil
}

// runFixture 针对每个声明的 chunk size 都执行一次完整的 round-trip 验证
func runFixture(f fixture) error {
	var framed []byte
	for _, payload := range f.Payloads {
		chunk, err := streamframer.Prepend([]byte(payload))
		if err != nil {
			return fmt.Errorf("prepend: %w", err)
		}
		framed = append(framed, chunk...)
	}

	var merr *multierror.Error
	for _, chunkSize := range f.ChunkSizes {
		if chunkSize <= 0 {
			continue
		}
		got, err := roundTrip(framed, chunkSize)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("chunkSize=%d: %w", chunkSize, err))
			continue
		}
		if len(got) != len(f.Payloads) {
			merr = multierror.Append(merr, fmt.Errorf(
				"chunkSize=%d: got %d messages, want %d", chunkSize, len(got), len(f.Payloads)))
			continue
		}
		for i, body := range got {
			if !bytes.Equal(body, []byte(f.Payloads[i])) {
				merr = multierror.Append(merr, fmt.Errorf(
					"chunkSize=%d: message %d mismatch: got %q, want %q", chunkSize, i, body, f.Payloads[i]))
			}
		}
	}
	return merr.ErrorOrNil()
}

func roundTrip(framed []byte, chunkSize int) ([][]byte, error) {
	var bodies [][]byte
	var residue streamframer.Residue

	for start := 0; start < len(framed); start += chunkSize {
		end := start + chunkSize
		if end > len(framed) {
			end = len(framed)
		}
		outcomes, next, err := streamframer.Parse(framed[start:end], residue, 0)
		residue = next
		if err != nil {
			return nil, err
		}
		for _, o := range outcomes {
			if o.Kind == streamframer.Completed {
				bodies = append(bodies, o.Body)
			}
		}
	}

	if residue != nil {
		return nil, fmt.Errorf("dangling residue at end of stream: %T", residue)
	}
	return bodies, nil
}

func init() {
	selftestCmd.Flags().StringArrayVar(&selftestFixtures, "fixture", nil, "Path to a YAML fixture file (repeatable)")
	rootCmd.AddCommand(selftestCmd)
}
