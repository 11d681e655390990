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

// Package server 提供一个最小的 TCP 演示服务：
// 每条连接上的字节流都会被逐块读取并交给 streamframer.Parse 重建
//
// Stream 的读写没有实现任何重传/乱序处理 这些职责完全交给底层传输
// (此处即 TCP 本身) 完成 与 streamframer 包的定位一致
package server

import (
	"net"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/packetd/streamframer/common"
	"github.com/packetd/streamframer/internal/metrics"
	"github.com/packetd/streamframer/internal/rescue"
	"github.com/packetd/streamframer/logger"
	"github.com/packetd/streamframer/streamframer"
)

func newError(format string, args ...any) error {
	format = "server: " + format
	return errors.Errorf(format, args...)
}

// Config 描述 Server 的运行参数
type Config struct {
	// ListenAddr 监听地址 如 ":9000"
	ListenAddr string `config:"listenAddr"`

	// ChunkSize 每次从连接读取的字节数
	ChunkSize int `config:"chunkSize"`

	// MaxFrameBytes 单条 message 允许的最大字节数 直接传给
	// streamframer.Parse 的 maxFrameBytes 参数
	//
	// 一旦某个 Header 声明的 LEN 超过此值 Parse 会在分配 Body accumulator
	// 之前就以 ErrCapacity 失败 而不是等 accumulator 分配完毕后才在服务层拒绝
	MaxFrameBytes uint32 `config:"maxFrameBytes"`
}

// DefaultConfig 返回带有合理默认值的 Config
func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":9000",
		ChunkSize:     common.DefaultChunkSize,
		MaxFrameBytes: common.DefaultMaxFrameBytes,
	}
}

// MessageHandler 在一条 message 被完整重建后调用
//
// sessionID 标识产生这条 message 的连接 fingerprint 是内容指纹 仅用于日志排查
// 并非协议层面的完整性校验 (MAGIC 仍然是唯一的协议级校验手段)
type MessageHandler func(sessionID string, fingerprint uint64, body []byte)

// Server 是一个最小的 TCP 框架服务
type Server struct {
	cfg     Config
	handler MessageHandler

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// New 创建 Server 实例 handler 可以为 nil 此时仅记录日志和指标
func New(cfg Config, handler MessageHandler) *Server {
	return &Server{cfg: cfg, handler: handler}
}

// ListenAndServe 开始监听并持续接受连接 直到 Stop 被调用
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return newError("listen %s: %v", s.cfg.ListenAddr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	logger.Infof("server: listening on %s", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return newError("accept: %v", err)
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Stop 关闭监听套接字并等待所有在途连接处理完毕
func (s *Server) Stop() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()

	if ln == nil {
		return nil
	}
	err := ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer rescue.HandleCrash()
	defer conn.Close()

	sessionID := uuid.NewString()
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	logger.Infof("server: session %s opened from %s", sessionID, conn.RemoteAddr())
	start := time.Now()

	var residue streamframer.Residue
	chunkSize := s.cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = common.DefaultChunkSize
	}
	buf := make([]byte, chunkSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if !s.consume(sessionID, buf[:n], &residue) {
				break
			}
		}
		if err != nil {
			break
		}
	}

	logger.Infof("server: session %s closed, lifetime=%s", sessionID, time.Since(start))
}

// consume 驱动单个 chunk 穿过 Parser 返回 false 表示连接应当被终止
//
// s.cfg.MaxFrameBytes 被直接传给 streamframer.Parse 一个声明 LEN 超出该值的
// Header 会在 Parse 内部以 ErrCapacity 失败 不会为其 Body 分配任何内存
func (s *Server) consume(sessionID string, chunk []byte, residue *streamframer.Residue) bool {
	outcomes, next, err := streamframer.Parse(chunk, *residue, s.cfg.MaxFrameBytes)
	*residue = next

	for _, o := range outcomes {
		switch o.Kind {
		case streamframer.Completed:
			metrics.MessagesCompletedTotal.Inc()
			metrics.BytesAssembledTotal.Add(float64(len(o.Body)))
			if s.handler != nil {
				s.handler(sessionID, xxhash.Sum64(o.Body), o.Body)
			}
			logger.Debugf("server: session %s completed message (%d bytes, fp=%x)",
				sessionID, len(o.Body), xxhash.Sum64(o.Body))

		case streamframer.Incompleted, streamframer.TruncatedHeader:
			// 等待下一次 Read 补全现场 无需特殊处理
		}
	}

	if err != nil {
		metrics.ParseErrorsTotal.WithLabelValues(parseErrorKind(err)).Inc()
		logger.Errorf("server: session %s parse error: %v", sessionID, err)
		*residue = nil
		return false
	}
	return true
}

func parseErrorKind(err error) string {
	switch {
	case errors.Is(err, streamframer.ErrMagicMismatch):
		return "magic_mismatch"
	case errors.Is(err, streamframer.ErrHeaderDecode):
		return "header_decode"
	case errors.Is(err, streamframer.ErrCapacity):
		return "capacity"
	default:
		return "unknown"
	}
}
