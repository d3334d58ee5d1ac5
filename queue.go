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

package agrion

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agrion/agrion/config"
	redis_db "github.com/agrion/agrion/internal/redis-db"
	"github.com/agrion/agrion/model"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Task types handled by the workers.
const (
	TaskWasteSync       = "agrion:waste_sync"
	TaskHedgingSync     = "agrion:hedging_sync"
	TaskQuarantineScan  = "agrion:quarantine_scan"
	TaskProcessWaste    = "agrion:process_waste"
	TaskAnalyzeOutbreak = "agrion:analyze_outbreak"
	TaskAuditEvent      = "agrion:audit_event"
	TaskWebhook         = "agrion:webhook"
)

// Queue represents the asynq client used to hand work to the workers.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
	conf      config.QueueConfig
}

type WasteTaskPayload struct {
	WasteID string `json:"waste_id"`
}

type OutbreakTaskPayload struct {
	ZoneID string `json:"zone_id"`
}

// RedisClientOpt converts the configured redis address into asynq connection options.
func RedisClientOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Username:  redisOption.Username,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisClientOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
		conf:      conf.Queue,
	}, nil
}

func (q *Queue) Close() error {
	if err := q.Inspector.Close(); err != nil {
		logrus.WithError(err).Warn("failed to close queue inspector")
	}
	return q.Client.Close()
}

func (q *Queue) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, asynq.NewTask(taskType, body), opts...)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"task": taskType, "id": info.ID, "queue": info.Queue}).Debug("task enqueued")
	return nil
}

// EnqueueWasteProcessing schedules ProcessWaste for one record. The waste ID doubles as the task
// ID, so reporting the same record twice enqueues it once.
func (q *Queue) EnqueueWasteProcessing(ctx context.Context, wasteID string) error {
	err := q.enqueue(ctx, TaskProcessWaste, WasteTaskPayload{WasteID: wasteID},
		asynq.TaskID(wasteID), asynq.Queue(q.conf.ProcessingQueue), asynq.MaxRetry(3))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (q *Queue) EnqueueOutbreakAnalysis(ctx context.Context, zoneID string) error {
	return q.enqueue(ctx, TaskAnalyzeOutbreak, OutbreakTaskPayload{ZoneID: zoneID},
		asynq.Queue(q.conf.ProcessingQueue), asynq.MaxRetry(3))
}

func (q *Queue) EnqueueAuditEvent(ctx context.Context, event model.AuditEvent) error {
	return q.enqueue(ctx, TaskAuditEvent, event, asynq.TaskID(event.EventID), asynq.Queue(q.conf.AuditQueue))
}

func (q *Queue) EnqueueWebhook(ctx context.Context, webhook NewWebhook) error {
	return q.enqueue(ctx, TaskWebhook, webhook, asynq.Queue(q.conf.WebhookQueue))
}

// PeriodicTask is one scheduler entry.
type PeriodicTask struct {
	Cronspec string
	Task     *asynq.Task
	Opts     []asynq.Option
}

// TaskScheduler is satisfied by *asynq.Scheduler.
type TaskScheduler interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// PeriodicTasks lists the orchestrator batches. Periodic tasks are never retried; the next
// tick is the retry.
func PeriodicTasks(conf *config.Configuration) []PeriodicTask {
	opts := []asynq.Option{asynq.Queue(conf.Queue.SyncQueue), asynq.MaxRetry(0)}
	return []PeriodicTask{
		{Cronspec: conf.Orchestrator.WasteSyncSchedule, Task: asynq.NewTask(TaskWasteSync, nil), Opts: opts},
		{Cronspec: conf.Orchestrator.QuarantineScanSchedule, Task: asynq.NewTask(TaskQuarantineScan, nil), Opts: opts},
		{Cronspec: conf.Orchestrator.HedgingSyncSchedule, Task: asynq.NewTask(TaskHedgingSync, nil), Opts: opts},
	}
}

func RegisterPeriodicTasks(scheduler TaskScheduler, conf *config.Configuration) error {
	for _, periodic := range PeriodicTasks(conf) {
		entryID, err := scheduler.Register(periodic.Cronspec, periodic.Task, periodic.Opts...)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"task": periodic.Task.Type(), "schedule": periodic.Cronspec, "entry": entryID}).Info("registered periodic task")
	}
	return nil
}
