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

package streamframer

import (
	"bytes"
	"math"
)

// Parse 解析一个新到达的 chunk 并重建出其中完整的 message
//
// residue 是上一次 Parse 调用返回的现场 首次调用传 nil 即可
//
// maxFrameBytes 是调用方允许的单条 message 最大字节数 0 表示不设限制
// 一旦某个 Header 解码出的 LEN 超过 maxFrameBytes Parse 会在为 Body 分配
// accumulator 之前就以 ErrCapacity 失败 不会触发任何按 LEN 大小的分配
//
// 返回值:
//   - outcomes: 按 wire 上出现顺序排列的解析记录 其中 Incompleted/TruncatedHeader
//     至多出现一条 且一定是最后一条
//   - next: 供下一次 Parse 调用传入的现场 至多为 PendingBody/PendingHeader 之一
//   - err: 解析失败时返回 此时 outcomes 仍然携带本次调用中已经成功产出的记录
//
// Parse 本身是单线程、非阻塞、同步执行的：不持有任何跨调用的包级可变状态
// 所有现场均由调用方持有并在下一次调用时传回
func Parse(chunk []byte, residue Residue, maxFrameBytes uint32) ([]Outcome, Residue, error) {
	if len(chunk) == 0 {
		return nil, residue, nil
	}

	var outcomes []Outcome
	data := chunk

	var body *PendingBody
	var header []byte

	switch r := residue.(type) {
	case PendingBody:
		cp := r
		body = &cp
	case PendingHeader:
		header = []byte(r)
	case nil:
		// Idle：两种现场均为空
	}

	for {
		// AwaitingBody：已经有一个解析完毕的 Header 在等待它的 Body 收满
		if body != nil {
			need := int(body.ExpectedLen) - len(body.Accumulated)
			switch {
			case len(data) < need:
				body.Accumulated = append(body.Accumulated, data...)
				outcomes = append(outcomes, Outcome{
					Kind:        Incompleted,
					ExpectedLen: body.ExpectedLen,
					Accumulated: body.Accumulated,
				})
				return outcomes, *body, nil

			case len(data) == need:
				body.Accumulated = append(body.Accumulated, data...)
				outcomes = append(outcomes, Outcome{Kind: Completed, Body: body.Accumulated})
				body, data = nil, nil

			default: // len(data) > need
				body.Accumulated = append(body.Accumulated, data[:need]...)
				outcomes = append(outcomes, Outcome{Kind: Completed, Body: body.Accumulated})
				data = data[need:]
				body = nil
			}
			continue
		}

		// AwaitingHeader：此前的 chunk 未能凑够完整的 12 字节 Header
		if header != nil {
			need := HeaderSize - len(header)
			if len(data) < need {
				header = append(header, data...)
				outcomes = append(outcomes, Outcome{Kind: TruncatedHeader, Header: header})
				return outcomes, PendingHeader(header), nil
			}

			full := append(header, data[:need]...)
			data = data[need:]
			header = nil

			expectedLen, err := decodeHeader(full, maxFrameBytes)
			if err != nil {
				return outcomes, nil, err
			}
			body = newPendingBody(expectedLen)
			continue
		}

		// Idle：下一段字节必须是一个 Header 的开始
		if len(data) == 0 {
			return outcomes, nil, nil
		}

		if len(data) < HeaderSize {
			h := bytes.Clone(data)
			outcomes = append(outcomes, Outcome{Kind: TruncatedHeader, Header: h})
			return outcomes, PendingHeader(h), nil
		}

		candidate := data[:HeaderSize]
		data = data[HeaderSize:]

		expectedLen, err := decodeHeader(candidate, maxFrameBytes)
		if err != nil {
			return outcomes, nil, err
		}
		body = newPendingBody(expectedLen)
	}
}

func newPendingBody(expectedLen uint32) *PendingBody {
	return &PendingBody{
		ExpectedLen: expectedLen,
		Accumulated: make([]byte, 0, expectedLen),
	}
}

// decodeHeader 校验并解码一个完整的 12 字节 Header 窗口
//
// MAGIC 采用逐字节严格比较 不存在任何模糊匹配
// 一旦 Idle 状态凑够了 HeaderSize 字节 MAGIC 不匹配即是硬性协议错误
//
// maxFrameBytes 非 0 时 LEN 超出该值同样以 ErrCapacity 失败 这一检查发生在
// newPendingBody 为 Body accumulator 分配内存之前 因此一个被破坏或恶意构造的
// 超大 LEN 永远不会触发对应大小的分配
func decodeHeader(b []byte, maxFrameBytes uint32) (uint32, error) {
	if len(b) != HeaderSize {
		return 0, ErrHeaderDecode
	}

	var magic [MagicSize]byte
	copy(magic[:], b[:MagicSize])
	if magic != Magic {
		return 0, ErrMagicMismatch
	}

	length := byteOrder.Uint32(b[MagicSize:HeaderSize])
	if uint64(length) > uint64(math.MaxInt) {
		return 0, ErrCapacity
	}
	if maxFrameBytes > 0 && length > maxFrameBytes {
		return 0, ErrCapacity
	}
	return length, nil
}
