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
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/packetd/streamframer/confengine"
	"github.com/packetd/streamframer/internal/sigs"
	"github.com/packetd/streamframer/logger"
	"github.com/packetd/streamframer/server"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

type serveConfig struct {
	Server      server.Config  `config:"server"`
	Logger      logger.Options `config:"logger"`
	MetricsAddr string         `config:"metricsAddr"`
}

func defaultServeConfig() serveConfig {
	return serveConfig{
		Server:      server.DefaultConfig(),
		Logger:      logger.Options{Stdout: true, Level: "info"},
		MetricsAddr: ":9001",
	}
}

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run a TCP server that reassembles framed messages from each connection",
	Example: "# streamframerctl serve --config streamframer.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := defaultServeConfig()

		if serveConfigPath != "" {
			loaded, err := confengine.LoadConfigPath(serveConfigPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := loaded.Unpack(&cfg); err != nil {
				return fmt.Errorf("unpack config: %w", err)
			}
		}

		logger.SetOptions(cfg.Logger)
		if serveLogLevel != "" {
			// overrides the config-file level without rebuilding the whole
			// Options (e.g. a one-off --log-level=debug for a single run)
			logger.SetLoggerLevel(serveLogLevel)
		}

		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Errorf("serve: metrics server stopped: %v", err)
				}
			}()
			logger.Infof("serve: metrics exposed on %s/metrics", cfg.MetricsAddr)
		}

		srv := server.New(cfg.Server, nil)
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		case <-sigs.Terminate():
			logger.Infof("serve: received termination signal, shutting down")
			return srv.Stop()
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a YAML config file")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd)
}
