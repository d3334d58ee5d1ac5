package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/agrion/agrion/config"
	"github.com/spf13/cobra"
)

// configCommands prints the computed configuration with secrets masked.
func configCommands() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "print the computed engine configuration",
		Annotations: map[string]string{"engine": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Fetch()
			if err != nil {
				log.Fatalf("Error getting config: %v\n", err)
			}

			masked := *cfg
			if masked.Server.SecretKey != "" {
				masked.Server.SecretKey = "********"
			}
			if masked.Notification.Slack.WebhookUrl != "" {
				masked.Notification.Slack.WebhookUrl = "********"
			}

			data, err := json.MarshalIndent(masked, "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}
			fmt.Println(string(data))
		},
	}
	return cmd
}
