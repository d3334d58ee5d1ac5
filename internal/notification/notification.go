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

package notification

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/internal/request"
	"github.com/sirupsen/logrus"
)

// SystemErrorEvent is the webhook event name used for engine failures.
const SystemErrorEvent = "system.error"

// WebhookSender delivers an event to the configured webhook endpoint.
type WebhookSender func(event string, payload interface{}) error

var (
	senderMu      sync.RWMutex
	webhookSender WebhookSender
)

// RegisterWebhookSender installs the sender used to forward system errors. A later call replaces it.
func RegisterWebhookSender(sender WebhookSender) {
	senderMu.Lock()
	defer senderMu.Unlock()
	webhookSender = sender
}

func currentSender() WebhookSender {
	senderMu.RLock()
	defer senderMu.RUnlock()
	return webhookSender
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

func slackMessage(err error, at time.Time) map[string]interface{} {
	return map[string]interface{}{
		"blocks": []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: "Error From Agrion 🐞", Emoji: true}},
			{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: "*Error:*\n" + err.Error()}}},
			{Type: "section", Fields: []slackText{{Type: "mrkdwn", Text: "*Time:*\n" + at.Format(time.RFC822)}}},
		},
	}
}

// SlackNotification posts err to the configured Slack webhook.
func SlackNotification(ctx context.Context, webhookURL string, err error) error {
	payload, jsonErr := request.ToJsonReq(slackMessage(err, time.Now()))
	if jsonErr != nil {
		return jsonErr
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, payload)
	if reqErr != nil {
		return reqErr
	}

	_, callErr := request.Call(req, nil)
	return callErr
}

// NotifyError logs systemError and forwards it to Slack and the registered webhook sender.
// It never blocks the caller.
func NotifyError(systemError error) {
	if systemError == nil {
		return
	}
	go func(systemError error) {
		logrus.Error(systemError)

		conf, err := config.Fetch()
		if err != nil {
			logrus.Warn(err)
			return
		}

		if conf.Notification.Slack.WebhookUrl != "" {
			ctx, cancel := context.WithTimeout(context.Background(), request.DefaultTimeout)
			defer cancel()
			if err := SlackNotification(ctx, conf.Notification.Slack.WebhookUrl, systemError); err != nil {
				logrus.WithError(err).Warn("slack notification failed")
			}
		}

		if sender := currentSender(); sender != nil {
			payload := map[string]interface{}{
				"error":     systemError.Error(),
				"timestamp": time.Now().UTC(),
			}
			if err := sender(SystemErrorEvent, payload); err != nil {
				logrus.WithError(err).Warn("system error webhook failed")
			}
		}
	}(systemError)
}
