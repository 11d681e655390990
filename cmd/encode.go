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
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/packetd/streamframer/streamframer"
)

var (
	encodeIn  string
	encodeOut string
)

var encodeCmd = &cobra.Command{
	Use:     "encode",
	Short:   "Frame each newline-delimited input record and write the framed stream",
	Example: "# streamframerctl encode --in records.txt --out records.framed",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := os.Stdin
		if encodeIn != "" {
			f, err := os.Open(encodeIn)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		out := os.Stdout
		if encodeOut != "" {
			f, err := os.Create(encodeOut)
			if err != nil {
				return fmt.Errorf("open output: %w", err)
			}
			defer f.Close()
			out = f
		}

		return encodeRecords(in, out)
	},
}

func encodeRecords(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var merr *multierror.Error
	var count int
	for scanner.Scan() {
		payload := scanner.Bytes()
		framed, err := streamframer.Prepend(payload)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("record %d: %w", count, err))
			continue
		}
		if _, err := out.Write(framed); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("record %d: write: %w", count, err))
			continue
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		merr = multierror.Append(merr, err)
	}

	if merr.ErrorOrNil() != nil {
		return merr
	}
	return nil
}

func init() {
	encodeCmd.Flags().StringVar(&encodeIn, "in", "", "Input file, newline-delimited records (default stdin)")
	encodeCmd.Flags().StringVar(&encodeOut, "out", "", "Output file for the framed stream (default stdout)")
	rootCmd.AddCommand(encodeCmd)
}
