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
	"fmt"
	"log"
	"os"

	"github.com/agrion/agrion"
	"github.com/agrion/agrion/config"
	"github.com/agrion/agrion/database"
	"github.com/agrion/agrion/internal/notification"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type Agrion struct {
	cmd *cobra.Command
}

// agrionInstance carries the engine and configuration built by the pre-run hook.
type agrionInstance struct {
	agrion *agrion.Agrion
	cnf    *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration from configFile and builds the engine before any subcommand runs.
// Commands that never touch the engine skip the database connection.
func preRun(app *agrionInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		if cmd.Annotations["engine"] == "none" {
			return nil
		}

		engine, err := setupAgrion(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}
		app.agrion = engine
		return nil
	}
}

func setupAgrion(cfg *config.Configuration) (*agrion.Agrion, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	engine, err := agrion.NewAgrion(db)
	if err != nil {
		return nil, fmt.Errorf("error creating agrion engine: %v", err)
	}
	return engine, nil
}

func NewCLI() *Agrion {
	var configFile string
	app := &agrionInstance{}

	var rootCmd = &cobra.Command{
		Use:   "agrion",
		Short: "Autonomous response engine for farm operations",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./agrion.json", "Configuration file for the engine")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(syncCommands(app))
	rootCmd.AddCommand(configCommands())

	return &Agrion{cmd: rootCmd}
}

func (w Agrion) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
