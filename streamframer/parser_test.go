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

package streamframer_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/streamframer/streamframer"
)

// framedStream concatenates Prepend(payload) for every payload in order.
func framedStream(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var out []byte
	for _, p := range payloads {
		framed, err := streamframer.Prepend(p)
		require.NoError(t, err)
		out = append(out, framed...)
	}
	return out
}

// chunks splits b into consecutive pieces of at most size bytes (size >= 1).
func chunks(b []byte, size int) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		n := size
		if n > len(b) {
			n = len(b)
		}
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

// feed drives chunks through Parse, asserting the residue invariant after
// every call, and returns every Completed body in order plus the final
// residue (nil if the stream ended cleanly).
func feed(t *testing.T, cs [][]byte) ([][]byte, streamframer.Residue) {
	t.Helper()

	var completed [][]byte
	var residue streamframer.Residue

	for _, c := range cs {
		outcomes, next, err := streamframer.Parse(c, residue, 0)
		require.NoError(t, err)
		assertResidueInvariant(t, outcomes, next)

		for _, o := range outcomes {
			if o.Kind == streamframer.Completed {
				completed = append(completed, o.Body)
			}
		}
		residue = next
	}
	return completed, residue
}

func assertResidueInvariant(t *testing.T, outcomes []streamframer.Outcome, next streamframer.Residue) {
	t.Helper()

	for i, o := range outcomes {
		if o.Kind == streamframer.Incompleted || o.Kind == streamframer.TruncatedHeader {
			assert.Equal(t, len(outcomes)-1, i, "terminal outcome must be last")
		}
	}

	switch r := next.(type) {
	case streamframer.PendingHeader:
		assert.GreaterOrEqual(t, len(r), 1)
		assert.LessOrEqual(t, len(r), streamframer.HeaderSize-1)
	case streamframer.PendingBody:
		assert.Less(t, len(r.Accumulated), int(r.ExpectedLen))
	case nil:
	default:
		t.Fatalf("unexpected residue type %T", next)
	}
}

func TestParseSingleSmallFrameOneChunk(t *testing.T) {
	payload := []byte("Une phrase test pour voir.")
	stream := framedStream(t, payload)

	require.Equal(t, streamframer.Magic[:], stream[:streamframer.MagicSize])
	length := uint32(stream[8])<<24 | uint32(stream[9])<<16 | uint32(stream[10])<<8 | uint32(stream[11])
	require.Equal(t, uint32(len(payload)), length)

	completed, residue := feed(t, [][]byte{stream})
	require.Len(t, completed, 1)
	assert.Equal(t, payload, completed[0])
	assert.Nil(t, residue)
}

func TestParseManyFramesChunkSize256(t *testing.T) {
	const n = 5000
	payload := []byte("Une nouvelle phrase test d'un certain nombre de bytes")

	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = payload
	}
	stream := framedStream(t, payloads...)

	completed, residue := feed(t, chunks(stream, 256))
	require.Len(t, completed, n)
	for _, c := range completed {
		assert.Equal(t, payload, c)
	}
	assert.Nil(t, residue)
}

func TestParseMessagesLargerThanChunk(t *testing.T) {
	const n = 2000
	payload := make([]byte, 750)
	for i := range payload {
		payload[i] = byte(i)
	}

	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = payload
	}
	stream := framedStream(t, payloads...)

	completed, residue := feed(t, chunks(stream, 128))
	require.Len(t, completed, n)
	for _, c := range completed {
		assert.Equal(t, payload, c)
	}
	assert.Nil(t, residue)
}

func TestParseChunkSizeEqualsHeaderSize(t *testing.T) {
	const n = 1010
	payload := make([]byte, 750)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = payload
	}
	stream := framedStream(t, payloads...)

	completed, residue := feed(t, chunks(stream, streamframer.HeaderSize))
	require.Len(t, completed, n)
	assert.Nil(t, residue)
}

func TestParseChunkSizeSmallerThanHeader(t *testing.T) {
	payload := make([]byte, 750)
	for i := range payload {
		payload[i] = byte(i * 3)
	}

	const n = 1000
	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = payload
	}
	stream := framedStream(t, payloads...)

	for size := 1; size < streamframer.HeaderSize; size++ {
		t.Run(fmt.Sprintf("chunkSize=%d", size), func(t *testing.T) {
			completed, residue := feed(t, chunks(stream, size))
			require.Len(t, completed, n)
			for _, c := range completed {
				assert.Equal(t, payload, c)
			}
			assert.Nil(t, residue)
		})
	}
}

func TestParseZeroLengthPayloads(t *testing.T) {
	const n = 5000
	payloads := make([][]byte, n)
	for i := range payloads {
		payloads[i] = []byte{}
	}
	stream := framedStream(t, payloads...)

	completed, residue := feed(t, chunks(stream, 128))
	require.Len(t, completed, n)
	for _, c := range completed {
		assert.Equal(t, []byte{}, c)
	}
	assert.Nil(t, residue)
}

func TestParseMagicMismatch(t *testing.T) {
	garbage := []byte("not a valid frame header!!!!")[:streamframer.HeaderSize]

	outcomes, residue, err := streamframer.Parse(garbage, nil, 0)
	require.ErrorIs(t, err, streamframer.ErrMagicMismatch)
	assert.Nil(t, residue)
	assert.Empty(t, outcomes)
}

func TestParseEmptyChunkIsNoOp(t *testing.T) {
	outcomes, residue, err := streamframer.Parse(nil, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, outcomes)
	assert.Nil(t, residue)

	// also a no-op mid-header / mid-body
	stream := framedStream(t, []byte("hello world"))
	outcomes, residue, err = streamframer.Parse(stream[:3], nil, 0)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.Equal(t, streamframer.TruncatedHeader, outcomes[0].Kind)

	outcomes, next, err := streamframer.Parse(nil, residue, 0)
	require.NoError(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, residue, next)
}

func TestParseMaxFrameBytesRejectsOversizedLengthBeforeAllocating(t *testing.T) {
	payload := make([]byte, 1024)
	stream := framedStream(t, payload)

	outcomes, residue, err := streamframer.Parse(stream, nil, 256)
	require.ErrorIs(t, err, streamframer.ErrCapacity)
	assert.Nil(t, residue)
	assert.Empty(t, outcomes)
}

func TestParseMaxFrameBytesZeroMeansUnlimited(t *testing.T) {
	payload := make([]byte, 1024)
	stream := framedStream(t, payload)

	outcomes, next, err := streamframer.Parse(stream, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, outcomes, 1)
	assert.Equal(t, streamframer.Completed, outcomes[0].Kind)
	assert.Equal(t, payload, outcomes[0].Body)
}

func TestParseMaxFrameBytesAllowsExactLimit(t *testing.T) {
	payload := make([]byte, 256)
	stream := framedStream(t, payload)

	outcomes, next, err := streamframer.Parse(stream, nil, 256)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, outcomes, 1)
	assert.Equal(t, streamframer.Completed, outcomes[0].Kind)
}

func TestParseTailFramesAndHeadInSingleChunk(t *testing.T) {
	a := []byte("first message body")
	b := []byte("second message body, a bit longer than the first one")
	c := []byte("third")

	stream := framedStream(t, a, b, c)

	// split so the first chunk holds: a full frame(a) + full frame(b) + a
	// few header-only bytes belonging to c's frame.
	split := len(stream) - streamframer.HeaderSize + 3
	first := stream[:split]
	second := stream[split:]

	completed, residue := feed(t, [][]byte{first, second})
	require.Len(t, completed, 3)
	assert.Equal(t, a, completed[0])
	assert.Equal(t, b, completed[1])
	assert.Equal(t, c, completed[2])
	assert.Nil(t, residue)
}

func TestParseBodyThenHeaderWithinSameChunk(t *testing.T) {
	a := []byte("aaaaaaaaaaaaaaaaaaaa")
	b := []byte("bb")

	framedA, err := streamframer.Prepend(a)
	require.NoError(t, err)
	framedB, err := streamframer.Prepend(b)
	require.NoError(t, err)

	// feed framedA in two pieces, so the second Parse call both completes
	// a's body AND re-enters header parsing for b within the same chunk.
	firstChunk := framedA[:streamframer.HeaderSize+5]
	secondChunk := append(append([]byte{}, framedA[streamframer.HeaderSize+5:]...), framedB...)

	completed, residue := feed(t, [][]byte{firstChunk, secondChunk})
	require.Len(t, completed, 2)
	assert.Equal(t, a, completed[0])
	assert.Equal(t, b, completed[1])
	assert.Nil(t, residue)
}

func TestParseOrderPreservedAcrossManyCallsWithRandomishSizes(t *testing.T) {
	payloads := [][]byte{
		[]byte("one"),
		[]byte("two two"),
		[]byte(""),
		[]byte("four four four four"),
		make([]byte, 300),
		[]byte("six"),
	}
	stream := framedStream(t, payloads...)

	sizes := []int{1, 2, 3, 5, 7, 11, 13, 17, 64, 256}
	for _, size := range sizes {
		completed, residue := feed(t, chunks(stream, size))
		require.Lenf(t, completed, len(payloads), "chunk size %d", size)
		for i, p := range payloads {
			assert.Equalf(t, p, completed[i], "chunk size %d, message %d", size, i)
		}
		assert.Nilf(t, residue, "chunk size %d", size)
	}
}
