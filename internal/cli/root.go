/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli wires the headless canvas engine into a cobra command tree:
// workspace management, export/import and rendering. The rendering layer of
// the desktop shell consumes the same store/engine APIs; the CLI exists for
// scripting and data interchange.
package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blazetornado2014/SpawnCanvas/internal/config"
	"github.com/blazetornado2014/SpawnCanvas/internal/history"
	"github.com/blazetornado2014/SpawnCanvas/internal/storage"
	"github.com/blazetornado2014/SpawnCanvas/internal/store"
	"github.com/blazetornado2014/SpawnCanvas/internal/telemetry"
	"github.com/blazetornado2014/SpawnCanvas/internal/version"
)

// App carries the flag state and the opened engine stack for one invocation.
type App struct {
	DataDir string
	Backend string
	PgDSN   string

	cfg        config.AppConfig
	pgPassword string

	kv   storage.KV
	st   *store.Store
	hist *history.Manager
}

// Store returns the opened store, or nil before open. The crash handler
// uses it for a last-chance flush.
func (a *App) Store() *store.Store { return a.st }

// ResolvedDataDir returns the effective data directory after open.
func (a *App) ResolvedDataDir() string { return a.cfg.General.DataDir }

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := NewRoot()
	return cmd
}

// NewRoot builds the command tree and exposes the App so the caller can
// install a crash handler around Execute.
func NewRoot() (*cobra.Command, *App) {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "spawncanvas",
		Short:        "SpawnCanvas workspace engine CLI",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # List workspaces
  spawncanvas workspace list

  # Export the current workspace
  spawncanvas export -o plans.json

  # Import a previously exported document (always creates a new workspace)
  spawncanvas import plans.json

  # Render a workspace to PDF
  spawncanvas render <workspace-id> --format pdf -o plans.pdf
`),
	}

	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "Override the workspace data directory")
	cmd.PersistentFlags().StringVar(&app.Backend, "backend", "", "Storage backend (file|sqlite|postgres|memory)")
	cmd.PersistentFlags().StringVar(&app.PgDSN, "pg-dsn", "", "Postgres DSN (backend=postgres)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newWorkspaceCmd(app))
	cmd.AddCommand(newExportCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newRenderCmd(app))

	return cmd, app
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "spawncanvas", version.String())
		},
	}
}

// open loads config, opens the storage backend and builds the store/history
// stack. Callers must defer app.close.
func (a *App) open(ctx context.Context) error {
	cfg, pw, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.pgPassword = pw
	if a.DataDir != "" {
		a.cfg.General.DataDir = a.DataDir
	}
	if a.Backend != "" {
		a.cfg.Storage.Backend = strings.ToLower(a.Backend)
	}
	if a.PgDSN != "" {
		a.cfg.Storage.PostgresDSN = a.PgDSN
	}
	if a.cfg.General.DataDir == "" {
		dir, err := config.DefaultDataDir()
		if err != nil {
			return err
		}
		a.cfg.General.DataDir = dir
	}

	a.kv, err = a.openKV(ctx)
	if err != nil {
		return err
	}

	a.st = store.NewStore(a.kv,
		store.WithSaveDebounce(time.Duration(a.cfg.Canvas.AutosaveDebounceMs)*time.Millisecond),
		store.WithQuotaSoftLimit(a.cfg.Canvas.QuotaBytes),
	)
	a.hist = history.NewManager(a.kv, history.WithDepth(a.cfg.Canvas.HistoryDepth))

	// deleting a workspace cascades to its undo history
	a.st.On(store.KindWorkspaceDeleted, func(e store.Event) {
		id := e.(store.WorkspaceDeleted).ID
		_ = a.hist.DeleteWorkspaceHistory(context.Background(), id)
	})
	telemetry.Event("cli_invoked", map[string]any{"backend": a.cfg.Storage.Backend})
	return nil
}

func (a *App) openKV(ctx context.Context) (storage.KV, error) {
	switch a.cfg.Storage.Backend {
	case "memory":
		return storage.NewMem(), nil
	case "file":
		return storage.NewFileKV(a.cfg.General.DataDir)
	case "sqlite", "":
		return storage.OpenSQLite(a.cfg.General.DataDir)
	case "postgres":
		dsn, err := dsnWithPassword(a.cfg.Storage.PostgresDSN, a.pgPassword)
		if err != nil {
			return nil, err
		}
		return storage.OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

func (a *App) close(ctx context.Context) {
	if a.st != nil {
		_ = a.st.Close(ctx)
	}
	if a.kv != nil {
		_ = a.kv.Close()
	}
}

// dsnWithPassword injects the keyring password into a URL-form DSN that does
// not already carry one. A DSN with an inline password wins.
func dsnWithPassword(dsn, password string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("backend=postgres requires a DSN (storage.postgres_dsn or --pg-dsn)")
	}
	if password == "" {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres DSN: %w", err)
	}
	if u.User == nil {
		return dsn, nil
	}
	if _, has := u.User.Password(); has {
		return dsn, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}
