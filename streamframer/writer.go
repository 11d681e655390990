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
	"math"

	"github.com/valyala/bytebufferpool"
)

// Prepend 构造 `MAGIC || LEN || payload` 的完整 frame 并返回一份独立的字节切片
//
// Prepend 是纯函数 不会修改或读取 payload 的语义内容 相同输入始终得到相同输出
// 当 len(payload) > 2^32-1 时返回 ErrCapacityExceeded
func Prepend(payload []byte) ([]byte, error) {
	if err := checkCapacity(len(payload)); err != nil {
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writeHeader(buf, len(payload))
	_, _ = buf.Write(payload)

	framed := make([]byte, buf.Len())
	copy(framed, buf.Bytes())
	return framed, nil
}

// PrependInPlace 原地将 payload 所在的切片改写为完整 frame
//
// *payload 会被替换为 `MAGIC || LEN || 原 payload`
// 当 len(*payload) > 2^32-1 时返回 ErrCapacityExceeded 且 *payload 保持不变
func PrependInPlace(payload *[]byte) error {
	if err := checkCapacity(len(*payload)); err != nil {
		return err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	writeHeader(buf, len(*payload))
	_, _ = buf.Write(*payload)

	framed := make([]byte, buf.Len())
	copy(framed, buf.Bytes())
	*payload = framed
	return nil
}

func writeHeader(buf *bytebufferpool.ByteBuffer, payloadLen int) {
	_, _ = buf.Write(Magic[:])

	var lenBytes [LengthSize]byte
	byteOrder.PutUint32(lenBytes[:], uint32(payloadLen))
	_, _ = buf.Write(lenBytes[:])
}

func checkCapacity(payloadLen int) error {
	if uint64(payloadLen) > math.MaxUint32 {
		return ErrCapacityExceeded
	}
	return nil
}
