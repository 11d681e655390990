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
	"github.com/pkg/errors"
)

func newError(format string, args ...any) error {
	format = "streamframer: " + format
	return errors.Errorf(format, args...)
}

var (
	// ErrCapacityExceeded 由 Writer 返回 payload 长度超出 uint32 可表示范围
	ErrCapacityExceeded = newError("payload exceeds capacity of uint32 length field")

	// ErrMagicMismatch 由 Parser 返回 header 边界处的 MAGIC 校验失败
	//
	// 这是一个语义性的协议错误 一旦 Idle 状态下凑够 12 字节 且 MAGIC 不匹配
	// 即认定为硬错误 不再尝试任何 fallback 路径
	ErrMagicMismatch = newError("magic mismatch at header boundary")

	// ErrHeaderDecode 由 Parser 返回 12 字节 header 窗口装配失败
	//
	// 在正常的内部前置条件下此错误不可达 仅作防御性处理
	ErrHeaderDecode = newError("failed to assemble header window")

	// ErrCapacity 由 Parser 返回 LEN 字段超出平台可用的寻址范围
	// 或超出调用方通过 maxFrameBytes 设置的上限
	//
	// 前者仅在 16 位等小字长平台上才有实际意义 后者是 Parse 在为 Body
	// accumulator 分配内存之前就能够拒绝一个被破坏或恶意构造的超大 LEN 的手段
	ErrCapacity = newError("length field exceeds configured capacity")
)
