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

package common

const (
	// App 应用程序名称
	App = "streamframer"

	// Version 应用程序版本
	Version = "v0.0.1"

	// DefaultChunkSize 默认单次从连接读取的字节数
	//
	// 值越大单次 syscall 的开销越小 但对应的每条连接常驻内存也越大
	// 值越小越能在小窗口内尽早看到 TruncatedHeader/Incompleted 现场
	// 4096 是两者之间的一个折中取值
	DefaultChunkSize = 4096

	// DefaultMaxFrameBytes 默认允许的单条 message 最大字节数
	//
	// 防止一个被破坏或者恶意构造的 LEN 字段触发过大的内存分配
	DefaultMaxFrameBytes = 64 << 20 // 64MiB
)
