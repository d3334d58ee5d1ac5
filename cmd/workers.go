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
	"fmt"
	"log"
	"net/http"

	"github.com/agrion/agrion"
	"github.com/agrion/agrion/config"
	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.elastic.co/apm/module/apmlogrus/v2"
)

func init() {
	logrus.AddHook(&apmlogrus.Hook{})
}

// initializeQueues weights the queues so containment work and its audit trail are never
// starved by periodic batches.
func initializeQueues(conf *config.Configuration) map[string]int {
	return map[string]int{
		conf.Queue.ProcessingQueue: 4,
		conf.Queue.AuditQueue:      3,
		conf.Queue.WebhookQueue:    2,
		conf.Queue.SyncQueue:       1,
	}
}

func initializeWorkerServer(conf *config.Configuration, redisOpt asynq.RedisClientOpt) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: conf.Queue.WorkerConcurrency,
		Queues:      initializeQueues(conf),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logrus.WithError(err).WithField("task", task.Type()).Error("task failed")
		}),
	})
}

func initializeTaskHandlers(engine *agrion.Agrion, mux *asynq.ServeMux) {
	mux.HandleFunc(agrion.TaskWasteSync, engine.HandleWasteSync)
	mux.HandleFunc(agrion.TaskQuarantineScan, engine.HandleQuarantineScan)
	mux.HandleFunc(agrion.TaskHedgingSync, engine.HandleHedgingSync)
	mux.HandleFunc(agrion.TaskProcessWaste, engine.HandleProcessWaste)
	mux.HandleFunc(agrion.TaskAnalyzeOutbreak, engine.HandleAnalyzeOutbreak)
	mux.HandleFunc(agrion.TaskAuditEvent, engine.ProcessAuditEvent)
	mux.HandleFunc(agrion.TaskWebhook, agrion.ProcessWebhook)
}

func startMonitoring(conf *config.Configuration, redisOpt asynq.RedisClientOpt) {
	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/monitoring",
		RedisConnOpt: redisOpt,
	})

	go func() {
		monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
		logrus.Infof("Asynqmon server listening on %s/monitoring", monitoringAddr)
		if err := http.ListenAndServe(monitoringAddr, h); err != nil {
			logrus.WithError(err).Error("could not start asynqmon server")
		}
	}()
}

// workerCommands starts the task workers together with the scheduler that enqueues the
// periodic waste sync, quarantine scan and hedging sync batches.
func workerCommands(app *agrionInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start agrion workers and the periodic scheduler",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			conf := app.cnf

			shutdown, err := initializeObservability(ctx, conf)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				if err := shutdown(ctx); err != nil {
					log.Printf("Error during shutdown: %v", err)
				}
			}()

			redisOpt, err := agrion.RedisClientOpt(conf)
			if err != nil {
				log.Fatalf("error parsing Redis URL: %v", err)
			}

			scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
				EnqueueErrorHandler: func(task *asynq.Task, opts []asynq.Option, err error) {
					logrus.WithError(err).WithField("task", task.Type()).Warn("failed to enqueue periodic task")
				},
			})
			if err := agrion.RegisterPeriodicTasks(scheduler, conf); err != nil {
				log.Fatalf("could not register periodic tasks: %v", err)
			}
			if err := scheduler.Start(); err != nil {
				log.Fatalf("could not start scheduler: %v", err)
			}
			defer scheduler.Shutdown()

			startMonitoring(conf, redisOpt)

			mux := asynq.NewServeMux()
			initializeTaskHandlers(app.agrion, mux)

			srv := initializeWorkerServer(conf, redisOpt)
			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
