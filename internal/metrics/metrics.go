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

// Package metrics 暴露 server 包运行时的 prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/streamframer/common"
)

var (
	// ActiveConnections 当前存活的连接数
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "active_connections",
			Help:      "Number of currently open framing connections",
		},
	)

	// MessagesCompletedTotal 已经完整重建的 message 总数
	MessagesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "messages_completed_total",
			Help:      "Total number of messages fully reassembled",
		},
	)

	// BytesAssembledTotal 已经重建出的 message 字节总数
	BytesAssembledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "bytes_assembled_total",
			Help:      "Total number of message bytes fully reassembled",
		},
	)

	// ParseErrorsTotal 按错误类型统计的解析失败总数
	ParseErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "parse_errors_total",
			Help:      "Total number of Parse failures by error kind",
		},
		[]string{"kind"},
	)
)
