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
	"net/http"

	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/internal/request"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Webhook events emitted after a unit of work commits.
const (
	EventWasteProcessed       = "waste.processed"
	EventContainmentTriggered = "containment.triggered"
	EventContainmentLifted    = "containment.lifted"
	EventContractCreated      = "contract.created"
	EventContractMatched      = "contract.matched"
	EventCreditsSpent         = "credits.spent"
	EventAuditRecorded        = "audit.recorded"
)

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// processHTTP posts the notification to the configured endpoint with the configured headers.
func processHTTP(ctx context.Context, conf *config.Configuration, data NewWebhook) error {
	payload, err := request.ToJsonReq(data)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Notification.Webhook.Url, payload)
	if err != nil {
		return err
	}
	for key, value := range conf.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	_, err = request.Call(req, nil)
	return err
}

// sendWebhook enqueues a domain event. Delivery is best effort: failures are logged, never returned.
func (a *Agrion) sendWebhook(ctx context.Context, event string, payload interface{}) {
	if a.queue == nil || a.cfg.Notification.Webhook.Url == "" {
		return
	}
	if err := a.queue.EnqueueWebhook(context.WithoutCancel(ctx), NewWebhook{Event: event, Payload: payload}); err != nil {
		logrus.WithError(err).WithField("event", event).Error("failed to enqueue webhook")
	}
}

// ProcessWebhook processes a webhook notification task from the queue.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}

	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("error unmarshaling webhook payload")
		return err
	}
	logrus.WithField("event", payload.Event).Info("processing webhook")
	return processHTTP(ctx, conf, payload)
}
