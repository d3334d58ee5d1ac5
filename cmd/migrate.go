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

	"github.com/agrion/agrion"
	"github.com/agrion/agrion/database"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

func migrateCommands(app *agrionInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "migrate",
		Short:       "apply or roll back the engine schema",
		Annotations: map[string]string{"engine": "none"},
	}

	cmd.AddCommand(migrationCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrationCommand(app, "down", migrate.Down))

	return cmd
}

// migrationCommand applies the embedded sql files in direction inside the engine schema.
func migrationCommand(app *agrionInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	return &cobra.Command{
		Use:         use,
		Annotations: map[string]string{"engine": "none"},
		Run: func(cmd *cobra.Command, args []string) {
			migrations := migrate.EmbedFileSystemMigrationSource{
				FileSystem: agrion.SQLFiles,
				Root:       "sql",
			}

			db, err := database.ConnectDB(app.cnf.DataSource.Dns)
			if err != nil {
				log.Printf("Error connecting to database: %v", err)
				return
			}
			defer db.Close()

			if err := database.EnsureSchema(db); err != nil {
				log.Printf("Error creating schema: %v", err)
				return
			}
			migrate.SetSchema(database.Schema)

			n, err := migrate.Exec(db, "postgres", migrations, direction)
			if err != nil {
				log.Printf("Error migrating %s: %v", use, err)
				return
			}
			fmt.Printf("Applied %d migrations %s!\n", n, use)
		},
	}
}
