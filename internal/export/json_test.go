/*
 * Copyright (c) 2026 by the SpawnCanvas authors.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/blazetornado2014/SpawnCanvas/internal/domain"
)

func sampleWorkspace() domain.Workspace {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return domain.Workspace{
		ID:   "ws-1",
		Name: "Plans",
		Items: []domain.Item{
			{
				ID: "n1", Type: domain.ItemNote, Title: "Note",
				Position: domain.Point{X: 100, Y: 100}, Size: domain.Size{Width: 240, Height: 160},
				Content: "body", CreatedAt: now, UpdatedAt: now,
			},
			{
				ID: "c1", Type: domain.ItemChecklist, Title: "List",
				Position: domain.Point{X: 400, Y: 100}, Size: domain.Size{Width: 260, Height: 200},
				Entries: []domain.ChecklistEntry{
					{ID: "e1", Text: "A"},
					{ID: "e2", Text: "B", Completed: true, Nested: 1},
				},
				CreatedAt: now, UpdatedAt: now,
			},
			{
				ID: "g1", Type: domain.ItemContainer, Title: "Group",
				Position: domain.Point{X: 60, Y: 60}, Size: domain.Size{Width: 400, Height: 300},
				Color: domain.ColorTeal, Children: []string{"n1", "ghost"},
				CreatedAt: now, UpdatedAt: now,
			},
		},
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	orig := sampleWorkspace()
	data, err := Export(orig)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got.ID == orig.ID {
		t.Fatalf("workspace id not regenerated")
	}
	if len(got.Items) != len(orig.Items) {
		t.Fatalf("item count %d, want %d", len(got.Items), len(orig.Items))
	}
	for i, it := range got.Items {
		old := orig.Items[i]
		if it.ID == old.ID {
			t.Fatalf("item %d id not regenerated", i)
		}
		if it.Type != old.Type || it.Title != old.Title || it.Position != old.Position || it.Size != old.Size {
			t.Fatalf("item %d structure changed: %+v vs %+v", i, it, old)
		}
		for j := range it.Entries {
			if it.Entries[j].ID == old.Entries[j].ID {
				t.Fatalf("entry %d/%d id not regenerated", i, j)
			}
			if it.Entries[j].Text != old.Entries[j].Text || it.Entries[j].Completed != old.Entries[j].Completed {
				t.Fatalf("entry %d/%d payload changed", i, j)
			}
		}
	}
	// the original document is untouched by the import
	if orig.Items[0].ID != "n1" || orig.Items[2].Children[0] != "n1" {
		t.Fatalf("import mutated the source workspace: %+v", orig)
	}
}

func TestImportRemapsChildrenAndDropsDangling(t *testing.T) {
	data, err := Export(sampleWorkspace())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	container := got.Items[2]
	if len(container.Children) != 1 {
		t.Fatalf("children = %v, want the one resolvable reference", container.Children)
	}
	if container.Children[0] != got.Items[0].ID {
		t.Fatalf("child %q not remapped to new note id %q", container.Children[0], got.Items[0].ID)
	}
}

func TestImportRejectsMalformedJSON(t *testing.T) {
	if _, err := Import([]byte(`{"version": 1,`)); err == nil {
		t.Fatalf("malformed JSON accepted")
	}
}

func TestImportRejectsMissingFields(t *testing.T) {
	_, err := Import([]byte(`{"version": 1, "exportedAt": "2026-03-01T00:00:00Z"}`))
	if err == nil || !strings.Contains(err.Error(), "workspace") {
		t.Fatalf("missing workspace not named in error: %v", err)
	}
}

func TestImportRejectsUnknownItemType(t *testing.T) {
	doc := `{
		"version": 1, "exportedAt": "2026-03-01T00:00:00Z",
		"workspace": {"name": "X", "items": [
			{"type": "sticker", "position": {"x": 0, "y": 0}, "size": {"width": 10, "height": 10}}
		]}
	}`
	if _, err := Import([]byte(doc)); err == nil {
		t.Fatalf("unknown item type accepted")
	}
}

func TestImportRejectsNewerVersion(t *testing.T) {
	doc := `{"version": 99, "exportedAt": "2026-03-01T00:00:00Z", "workspace": {"name": "X", "items": []}}`
	if _, err := Import([]byte(doc)); err == nil {
		t.Fatalf("newer version accepted")
	}
}

func TestBulkRoundTripAndIsBulk(t *testing.T) {
	wss := []domain.Workspace{sampleWorkspace(), {ID: "ws-2", Name: "Empty", Items: []domain.Item{}}}
	data, err := ExportAll(wss)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if !IsBulk(data) {
		t.Fatalf("bulk document not recognized")
	}
	single, _ := Export(sampleWorkspace())
	if IsBulk(single) {
		t.Fatalf("single document misdetected as bulk")
	}

	got, errs, err := ImportAll(data)
	if err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("imported %d workspaces, want 2", len(got))
	}
	for i, e := range errs {
		if e != nil {
			t.Fatalf("entry %d failed: %v", i, e)
		}
	}
}

func TestBulkImportIsolatesBadEntries(t *testing.T) {
	good := sampleWorkspace()
	doc := BulkExport{
		Version:    FormatVersion,
		ExportedAt: time.Now().UTC(),
		Type:       "all",
		Workspaces: []domain.Workspace{
			good,
			{Name: "", Items: []domain.Item{}}, // missing name
			{Name: "Bad item", Items: []domain.Item{{Type: "sticker"}}},
			{Name: "Fine", Items: []domain.Item{}},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, errs, err := ImportAll(data)
	if err != nil {
		t.Fatalf("ImportAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("imported %d workspaces, want the 2 valid ones", len(got))
	}
	if errs[1] == nil || errs[2] == nil {
		t.Fatalf("bad entries not reported: %v", errs)
	}
	if errs[0] != nil || errs[3] != nil {
		t.Fatalf("good entries reported errors: %v", errs)
	}
}
