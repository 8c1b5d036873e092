/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
	"github.com/blazetornado2014/SpawnCanvas/internal/export"
)

func newExportCmd(app *App) *cobra.Command {
	var out string
	var all bool
	cmd := &cobra.Command{
		Use:   "export [workspace-id]",
		Short: "Export a workspace (or all workspaces) to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := app.open(ctx); err != nil {
				return err
			}
			defer app.close(ctx)

			var data []byte
			switch {
			case all:
				wss, err := app.allWorkspaces(ctx)
				if err != nil {
					return err
				}
				data, err = export.ExportAll(wss)
				if err != nil {
					return err
				}
			default:
				ws, err := app.resolveWorkspace(ctx, args)
				if err != nil {
					return err
				}
				data, err = export.Export(ws)
				if err != nil {
					return err
				}
			}
			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().BoolVar(&all, "all", false, "Export every workspace as one bulk document")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import an exported document as new workspace(s)",
		Long: strings.TrimSpace(`
Import never overwrites: every id is regenerated and a new workspace is
created for each entry. In a bulk document, malformed entries are reported
and skipped without aborting the valid ones.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if err := app.open(ctx); err != nil {
				return err
			}
			defer app.close(ctx)

			if export.IsBulk(data) {
				wss, errs, err := export.ImportAll(data)
				if err != nil {
					return err
				}
				for _, e := range errs {
					if e != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %v\n", e)
					}
				}
				for _, ws := range wss {
					info, err := app.st.ImportWorkspace(ctx, ws)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", info.Name, info.ID)
				}
				return nil
			}

			ws, err := export.Import(data)
			if err != nil {
				return err
			}
			info, err := app.st.ImportWorkspace(ctx, ws)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%s)\n", info.Name, info.ID)
			return nil
		},
	}
}

func newRenderCmd(app *App) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "render [workspace-id]",
		Short: "Render a workspace to PDF or PNG",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			if err := app.open(ctx); err != nil {
				return err
			}
			defer app.close(ctx)

			ws, err := app.resolveWorkspace(ctx, args)
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()

			switch strings.ToLower(format) {
			case "pdf":
				err = export.WritePDF(ws, f)
			case "png":
				err = export.WritePNG(ws, f)
			default:
				return fmt.Errorf("unknown format %q (pdf|png)", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rendered %s to %s\n", ws.Name, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "pdf", "Output format (pdf|png)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	return cmd
}

// resolveWorkspace loads the named workspace, or the current one when no id
// is given.
func (a *App) resolveWorkspace(ctx context.Context, args []string) (domain.Workspace, error) {
	if len(args) == 1 {
		if err := a.st.SwitchWorkspace(ctx, args[0]); err != nil {
			return domain.Workspace{}, err
		}
	} else if err := a.st.OpenLast(ctx); err != nil {
		return domain.Workspace{}, err
	}
	ws, ok := a.st.CurrentWorkspace()
	if !ok {
		return domain.Workspace{}, fmt.Errorf("no workspace available")
	}
	return ws, nil
}

// allWorkspaces loads every workspace document listed in the index.
func (a *App) allWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	list, err := a.st.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Workspace, 0, len(list))
	for _, info := range list {
		if err := a.st.SwitchWorkspace(ctx, info.ID); err != nil {
			return nil, err
		}
		ws, ok := a.st.CurrentWorkspace()
		if !ok {
			return nil, fmt.Errorf("workspace %s vanished", info.ID)
		}
		out = append(out, ws)
	}
	return out, nil
}
