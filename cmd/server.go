/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/agrion/agrion/api"
	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/internal/traces"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownGrace = 10 * time.Second

func initializeObservability(ctx context.Context, cfg *config.Configuration) (func(context.Context) error, error) {
	if !cfg.EnableTelemetry {
		return func(context.Context) error { return nil }, nil
	}

	shutdown, err := traces.SetupOTelSDK(ctx, cfg.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("error setting up OTel SDK: %v", err)
	}
	return shutdown, nil
}

// startServer serves router until ctx is cancelled, then drains in-flight requests.
func startServer(ctx context.Context, router *gin.Engine, cfg config.ServerConfig) error {
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Starting server on http://localhost:%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func serverCommands(app *agrionInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "start the agrion api server",
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdown, err := initializeObservability(ctx, app.cnf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()
			defer func() {
				if err := app.agrion.Close(); err != nil {
					logrus.WithError(err).Warn("failed to close engine")
				}
			}()

			newApi := api.NewAPI(app.agrion)
			if newApi == nil {
				log.Fatal("config not loaded")
			}

			if err := startServer(ctx, newApi.Router(), app.cnf.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
