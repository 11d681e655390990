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

// Package streamframer reconstructs discrete, variable-length messages out
// of an ordered byte stream chopped into arbitrarily-sized chunks by some
// outer transport.
//
// A frame on the wire is laid out as:
//
//	offset 0  1  2  3  4  5  6  7   8  9 10 11  12 ...
//	       00 F1 01 E4 02 FF 03 DD  LEN (BE u32)  BODY (LEN bytes)
//
// Writer prepends that 12-byte header to a payload; Parser is the
// stateful counterpart that turns a sequence of arbitrarily-chunked
// frames back into the original message sequence.
package streamframer

import "encoding/binary"

const (
	// MagicSize Header 中 MAGIC 字段的长度
	MagicSize = 8

	// LengthSize Header 中 LEN 字段的长度
	LengthSize = 4

	// HeaderSize 完整 Header 长度 MagicSize + LengthSize
	HeaderSize = MagicSize + LengthSize
)

// Magic 是每个 frame Header 固定的起始 8 字节哨兵值
//
// Parser 在 Idle 状态凑够 HeaderSize 字节后 会对这 8 字节做逐字节严格比较
// 不存在任何模糊匹配
var Magic = [MagicSize]byte{0x00, 0xF1, 0x01, 0xE4, 0x02, 0xFF, 0x03, 0xDD}

var byteOrder = binary.BigEndian
