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

// Residue 是调用方在相邻两次 Parse 调用之间持有的解析现场
//
// 同一时刻至多有一种 Residue 存在：要么是一个尚未收满的 Header(PendingHeader)
// 要么是一个 Header 已经解析完毕、Body 尚未收满的 PendingBody
// 二者互斥由类型系统保证 而不是依赖两个可能同时非空的可选字段
type Residue interface {
	isResidue()
}

// PendingBody 是已确定长度、尚未收满的 Body 现场
//
// ExpectedLen 即 Header 中解码出的 LEN 字段
// Accumulated 是目前为止已经收到的 Body 前缀 len(Accumulated) < ExpectedLen 恒成立
type PendingBody struct {
	ExpectedLen uint32
	Accumulated []byte
}

func (PendingBody) isResidue() {}

// PendingHeader 是尚未收满 12 字节的部分 Header
//
// 长度恒在 [1, HeaderSize-1] 区间内
type PendingHeader []byte

func (PendingHeader) isResidue() {}
