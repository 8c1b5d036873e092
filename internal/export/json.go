/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export implements the workspace interchange surface: versioned
// JSON export/import with schema validation, plus PDF and PNG rendering of
// a workspace snapshot. Import is non-destructive: every id is regenerated
// and a new workspace is always created, never merged into an existing one.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "embed"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
)

// FormatVersion is the interchange document version this build reads and
// writes.
const FormatVersion = 1

//go:embed schema.json
var schemaJSON []byte

// WorkspaceExport is the single-workspace interchange envelope.
type WorkspaceExport struct {
	Version    int              `json:"version"`
	ExportedAt time.Time        `json:"exportedAt"`
	Workspace  domain.Workspace `json:"workspace"`
}

// BulkExport is the all-workspaces interchange envelope.
type BulkExport struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Type       string             `json:"type"`
	Workspaces []domain.Workspace `json:"workspaces"`
}

// Export serializes one workspace into the interchange format.
func Export(ws domain.Workspace) ([]byte, error) {
	doc := WorkspaceExport{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC(),
		Workspace:  ws.Clone(),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export workspace %s: %w", ws.ID, err)
	}
	return b, nil
}

// ExportAll serializes every workspace into one bulk document.
func ExportAll(wss []domain.Workspace) ([]byte, error) {
	doc := BulkExport{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC(),
		Type:       "all",
		Workspaces: make([]domain.Workspace, 0, len(wss)),
	}
	for _, ws := range wss {
		doc.Workspaces = append(doc.Workspaces, ws.Clone())
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export all: %w", err)
	}
	return b, nil
}

// IsBulk reports whether data is an all-workspaces document. Malformed JSON
// reports false; Import surfaces the real error.
func IsBulk(data []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Type == "all"
}

// Import validates and decodes a single-workspace document. All ids (the
// workspace, every item, nested checklist entries) are regenerated so the
// result can never collide with existing data; advisory children references
// are remapped to the new item ids. Validation happens before any id work,
// and a failed import returns an error naming the offending field.
func Import(data []byte) (domain.Workspace, error) {
	if err := validate(data); err != nil {
		return domain.Workspace{}, err
	}
	var doc WorkspaceExport
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Workspace{}, fmt.Errorf("decode import: %w", err)
	}
	if doc.Version > FormatVersion {
		return domain.Workspace{}, fmt.Errorf("import version %d is newer than supported version %d", doc.Version, FormatVersion)
	}
	return regenerate(doc.Workspace), nil
}

// ImportAll decodes a bulk document. Each workspace entry is processed
// independently: a malformed entry yields an error in errs at its index and
// does not abort the remaining entries.
func ImportAll(data []byte) (wss []domain.Workspace, errs []error, err error) {
	if verr := validateBulkEnvelope(data); verr != nil {
		return nil, nil, verr
	}
	var doc BulkExport
	if uerr := json.Unmarshal(data, &doc); uerr != nil {
		return nil, nil, fmt.Errorf("decode bulk import: %w", uerr)
	}
	if doc.Version > FormatVersion {
		return nil, nil, fmt.Errorf("import version %d is newer than supported version %d", doc.Version, FormatVersion)
	}
	errs = make([]error, len(doc.Workspaces))
	for i, ws := range doc.Workspaces {
		if werr := validateWorkspace(ws); werr != nil {
			errs[i] = fmt.Errorf("workspace %d (%q): %w", i, ws.Name, werr)
			continue
		}
		wss = append(wss, regenerate(ws))
	}
	return wss, errs, nil
}

// regenerate deep-clones ws with every id replaced and children remapped.
func regenerate(ws domain.Workspace) domain.Workspace {
	out := ws.Clone()
	out.ID = uuid.NewString()
	idMap := make(map[string]string, len(out.Items))
	for i := range out.Items {
		fresh := uuid.NewString()
		idMap[out.Items[i].ID] = fresh
		out.Items[i].ID = fresh
		for j := range out.Items[i].Entries {
			out.Items[i].Entries[j].ID = uuid.NewString()
		}
	}
	for i := range out.Items {
		if len(out.Items[i].Children) == 0 {
			continue
		}
		kept := out.Items[i].Children[:0]
		for _, old := range out.Items[i].Children {
			if fresh, ok := idMap[old]; ok {
				kept = append(kept, fresh)
			}
		}
		out.Items[i].Children = kept
	}
	return out
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("import is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("import rejected: %s", strings.Join(msgs, "; "))
}

// validateBulkEnvelope checks only the bulk envelope shape; per-entry
// validation happens entry by entry in ImportAll.
func validateBulkEnvelope(data []byte) error {
	var probe struct {
		Version    *int              `json:"version"`
		Type       string            `json:"type"`
		Workspaces []json.RawMessage `json:"workspaces"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&probe); err != nil {
		return fmt.Errorf("import is not valid JSON: %w", err)
	}
	if probe.Version == nil {
		return fmt.Errorf("import rejected: missing required field version")
	}
	if probe.Type != "all" {
		return fmt.Errorf("import rejected: type must be %q for a bulk document", "all")
	}
	if probe.Workspaces == nil {
		return fmt.Errorf("import rejected: missing required field workspaces")
	}
	return nil
}

// validateWorkspace checks one embedded workspace from a bulk document.
func validateWorkspace(ws domain.Workspace) error {
	if strings.TrimSpace(ws.Name) == "" {
		return fmt.Errorf("missing required field name")
	}
	for i, it := range ws.Items {
		if !it.Type.Valid() {
			return fmt.Errorf("item %d has unknown type %q", i, it.Type)
		}
		if it.Size.Width < 0 || it.Size.Height < 0 || it.Position.X < 0 || it.Position.Y < 0 {
			return fmt.Errorf("item %d has negative geometry", i)
		}
	}
	return nil
}
