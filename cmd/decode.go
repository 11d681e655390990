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
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/packetd/streamframer/common"
	"github.com/packetd/streamframer/streamframer"
)

var (
	decodeIn            string
	decodeChunkSize     int
	decodeJSON          bool
	decodeMaxFrameBytes uint32
)

// messageRecord 是 --json 模式下输出的一条记录
type messageRecord struct {
	Seq    int    `json:"seq"`
	Length int    `json:"length"`
	Body   string `json:"body"`
}

var decodeCmd = &cobra.Command{
	Use:     "decode",
	Short:   "Read a framed stream and print every reconstructed message",
	Example: "# streamframerctl decode --in records.framed --chunk-size 256 --json",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := os.Stdin
		if decodeIn != "" {
			f, err := os.Open(decodeIn)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		return decodeStream(in, os.Stdout)
	},
}

func decodeStream(in io.Reader, out io.Writer) error {
	chunkSize := decodeChunkSize
	if chunkSize <= 0 {
		chunkSize = common.DefaultChunkSize
	}
	buf := make([]byte, chunkSize)

	var residue streamframer.Residue
	var seq int

	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			outcomes, next, err := streamframer.Parse(buf[:n], residue, decodeMaxFrameBytes)
			residue = next
			if writeErr := emitOutcomes(out, outcomes, &seq); writeErr != nil {
				return writeErr
			}
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("read: %w", readErr)
		}
	}

	if residue != nil {
		return fmt.Errorf("stream ended with a dangling partial frame: %T", residue)
	}
	return nil
}

func emitOutcomes(out io.Writer, outcomes []streamframer.Outcome, seq *int) error {
	for _, o := range outcomes {
		if o.Kind != streamframer.Completed {
			continue
		}

		if decodeJSON {
			rec := messageRecord{Seq: *seq, Length: len(o.Body), Body: string(o.Body)}
			b, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			if _, err := out.Write(append(b, '\n')); err != nil {
				return err
			}
		} else {
			if _, err := out.Write(o.Body); err != nil {
				return err
			}
			if _, err := out.Write([]byte{'\n'}); err != nil {
				return err
			}
		}
		*seq++
	}
	return nil
}

func init() {
	decodeCmd.Flags().StringVar(&decodeIn, "in", "", "Input file holding a framed stream (default stdin)")
	decodeCmd.Flags().IntVar(&decodeChunkSize, "chunk-size", common.DefaultChunkSize, "Bytes to read per chunk")
	decodeCmd.Flags().BoolVar(&decodeJSON, "json", false, "Emit one JSON record per message instead of raw bytes")
	decodeCmd.Flags().Uint32Var(&decodeMaxFrameBytes, "max-frame-bytes", common.DefaultMaxFrameBytes,
		"Reject a declared LEN above this many bytes before allocating its body (0 disables the check)")
	rootCmd.AddCommand(decodeCmd)
}
