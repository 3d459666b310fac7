package registry

import (
	"context"
	"errors"
	"io"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/meshport/meshport-agent/internal/db"
	"github.com/meshport/meshport-agent/internal/preset"
	"github.com/meshport/meshport-agent/internal/scene"
)

func setupTestDB(t *testing.T) (*db.DB, *SQLiteStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, NewStore(database.Conn())
}

func testScene() *scene.StateStore {
	host := scene.NewStateStore()
	host.Update(scene.State{
		SceneID:   "scene-1",
		ScenePath: "/proj/scenes/main.blend",
		Objects: []scene.ObjectRef{
			{ID: "obj-a", Name: "crate"},
			{ID: "obj-b", Name: "barrel"},
			{ID: "obj-c", Name: "rock"},
		},
		Selected: []string{"obj-a"},
	})
	return host
}

func setupService(t *testing.T) (*Service, *scene.StateStore) {
	t.Helper()
	_, store := setupTestDB(t)
	host := testScene()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, preset.NewStore(), host, logger), host
}

func TestService_Create(t *testing.T) {
	svc, _ := setupService(t)

	c, err := svc.Create(context.Background(), CreateParams{
		Name:      "wooden crate",
		MemberIDs: []string{"obj-a", "obj-b"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if c.ID == "" {
		t.Error("collection ID is empty")
	}
	if c.Name != "Wooden_Crate" {
		t.Errorf("Name = %q, want Wooden_Crate", c.Name)
	}
	if c.SceneID != "scene-1" {
		t.Errorf("SceneID = %q, want scene-1", c.SceneID)
	}
	if len(c.Members) != 2 {
		t.Errorf("Members = %v, want 2 entries", c.Members)
	}
	if c.Format != preset.FormatFBX {
		t.Errorf("Format = %s, want FBX (static-mesh default)", c.Format)
	}
	if c.OutputPath != "SM_Wooden_Crate.fbx" {
		t.Errorf("OutputPath = %q, want SM_Wooden_Crate.fbx", c.OutputPath)
	}
	if c.Settings["apply_modifiers"] != true {
		t.Error("Settings not snapshotted from preset")
	}
}

func TestService_Create_OutputDirGetsDerivedFileName(t *testing.T) {
	svc, _ := setupService(t)

	c, err := svc.Create(context.Background(), CreateParams{
		Name:       "Crate",
		MemberIDs:  []string{"obj-a"},
		OutputPath: "export/props",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.OutputPath != "export/props/SM_Crate.fbx" {
		t.Errorf("OutputPath = %q, want export/props/SM_Crate.fbx", c.OutputPath)
	}
}

func TestService_Create_ExplicitOutputFileKept(t *testing.T) {
	svc, _ := setupService(t)

	c, err := svc.Create(context.Background(), CreateParams{
		Name:       "Crate",
		MemberIDs:  []string{"obj-a"},
		OutputPath: "export/custom_name.fbx",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.OutputPath != "export/custom_name.fbx" {
		t.Errorf("OutputPath = %q, want export/custom_name.fbx", c.OutputPath)
	}
}

func TestService_Create_EmptySelection(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), CreateParams{Name: "Crate"})
	var empty *EmptySelectionError
	if !errors.As(err, &empty) {
		t.Fatalf("error = %v, want EmptySelectionError", err)
	}
}

func TestService_Create_DuplicateName(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}}); err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	// Names that normalize to the same value collide.
	_, err := svc.Create(ctx, CreateParams{Name: "crate", MemberIDs: []string{"obj-b"}})
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("error = %v, want DuplicateNameError", err)
	}
}

func TestService_Create_UnknownPreset(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Create(context.Background(), CreateParams{
		Name:      "Crate",
		MemberIDs: []string{"obj-a"},
		PresetID:  "nope",
	})
	var unknown *UnknownPresetError
	if !errors.As(err, &unknown) {
		t.Fatalf("error = %v, want UnknownPresetError", err)
	}
}

func TestService_Create_EmptyNameFallsBackToScene(t *testing.T) {
	svc, _ := setupService(t)

	c, err := svc.Create(context.Background(), CreateParams{MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Name != "main" {
		t.Errorf("Name = %q, want main (scene basename)", c.Name)
	}
}

func TestService_Create_DedupesMembers(t *testing.T) {
	svc, _ := setupService(t)

	c, err := svc.Create(context.Background(), CreateParams{
		Name:      "Crate",
		MemberIDs: []string{"obj-a", "obj-b", "obj-a"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(c.Members) != 2 {
		t.Errorf("Members = %v, want deduplicated to 2", c.Members)
	}
}

func TestService_CreatePerObject(t *testing.T) {
	svc, host := setupService(t)

	created, err := svc.CreatePerObject(context.Background(), host.EnumerateObjects(), "export", "")
	if err != nil {
		t.Fatalf("CreatePerObject() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d collections, want 3", len(created))
	}

	names := map[string]bool{}
	for _, c := range created {
		names[c.Name] = true
		if len(c.Members) != 1 {
			t.Errorf("collection %s has %d members, want 1", c.Name, len(c.Members))
		}
	}
	for _, want := range []string{"Crate", "Barrel", "Rock"} {
		if !names[want] {
			t.Errorf("missing collection %q, got %v", want, names)
		}
	}
}

func TestService_CreatePerObject_SkipsCollisions(t *testing.T) {
	svc, host := setupService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-b"}}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created, err := svc.CreatePerObject(ctx, host.EnumerateObjects(), "", "")
	if err == nil {
		t.Fatal("CreatePerObject() should report the name collision")
	}
	if len(created) != 2 {
		t.Errorf("created %d collections, want 2 (collision skipped)", len(created))
	}
}

func TestService_List_OrderedByName(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for _, name := range []string{"Zulu", "Alpha", "Mike"} {
		if _, err := svc.Create(ctx, CreateParams{Name: name, MemberIDs: []string{"obj-a"}}); err != nil {
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"Alpha", "Mike", "Zulu"}
	if len(list) != len(want) {
		t.Fatalf("List() returned %d collections, want %d", len(list), len(want))
	}
	for i, c := range list {
		if c.Name != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, c.Name, want[i])
		}
	}
}

func TestService_Get_NotFound(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestService_Get_PrunesStaleMembers(t *testing.T) {
	svc, host := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a", "obj-b"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// obj-b disappears from the scene.
	host.Update(scene.State{
		SceneID:   "scene-1",
		ScenePath: "/proj/scenes/main.blend",
		Objects:   []scene.ObjectRef{{ID: "obj-a", Name: "crate"}},
	})

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Members) != 1 || got.Members[0] != "obj-a" {
		t.Errorf("Members = %v, want [obj-a]", got.Members)
	}

	// The prune is persisted.
	again, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if len(again.Members) != 1 {
		t.Errorf("persisted Members = %v, want 1 entry", again.Members)
	}
}

func TestService_FindByMember(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateParams{Name: "Both", MemberIDs: []string{"obj-a", "obj-b"}}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Create(ctx, CreateParams{Name: "Rock", MemberIDs: []string{"obj-c"}}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	found, err := svc.FindByMember(ctx, "obj-a")
	if err != nil {
		t.Fatalf("FindByMember() error = %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("FindByMember(obj-a) returned %d, want 2", len(found))
	}
}

func TestService_AddRemoveMembers_Idempotent(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.AddMembers(ctx, c.ID, []string{"obj-b", "obj-a"})
	if err != nil {
		t.Fatalf("AddMembers() error = %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("Members after add = %v, want 2", got.Members)
	}

	// Adding an existing member is a no-op.
	got, err = svc.AddMembers(ctx, c.ID, []string{"obj-b"})
	if err != nil {
		t.Fatalf("repeated AddMembers() error = %v", err)
	}
	if len(got.Members) != 2 {
		t.Errorf("Members after repeated add = %v, want 2", got.Members)
	}

	got, err = svc.RemoveMembers(ctx, c.ID, []string{"obj-a"})
	if err != nil {
		t.Fatalf("RemoveMembers() error = %v", err)
	}
	if len(got.Members) != 1 || got.Members[0] != "obj-b" {
		t.Errorf("Members after remove = %v, want [obj-b]", got.Members)
	}

	// Removing a non-member is a no-op.
	got, err = svc.RemoveMembers(ctx, c.ID, []string{"obj-z"})
	if err != nil {
		t.Fatalf("RemoveMembers(non-member) error = %v", err)
	}
	if len(got.Members) != 1 {
		t.Errorf("Members after no-op remove = %v, want 1", got.Members)
	}
}

func TestService_Rename(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Rename(ctx, c.ID, "big crate")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if got.Name != "Big_Crate" {
		t.Errorf("Name = %q, want Big_Crate", got.Name)
	}
}

func TestService_Rename_Duplicate(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	c, err := svc.Create(ctx, CreateParams{Name: "Barrel", MemberIDs: []string{"obj-b"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Rename(ctx, c.ID, "Crate")
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("error = %v, want DuplicateNameError", err)
	}
}

func TestService_Rename_SelfIsNoConflict(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Rename(ctx, c.ID, "crate"); err != nil {
		t.Fatalf("Rename() to own normalized name error = %v", err)
	}
}

func TestService_SetOutputPath(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.SetOutputPath(ctx, c.ID, "  export/props/crate.fbx  ")
	if err != nil {
		t.Fatalf("SetOutputPath() error = %v", err)
	}
	if got.OutputPath != "export/props/crate.fbx" {
		t.Errorf("OutputPath = %q, want trimmed export/props/crate.fbx", got.OutputPath)
	}

	if _, err := svc.SetOutputPath(ctx, c.ID, ""); err == nil {
		t.Error("SetOutputPath(empty) should fail")
	}
}

func TestService_SetFormat_KeepsSettings(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.SetFormat(ctx, c.ID, preset.FormatOBJ)
	if err != nil {
		t.Fatalf("SetFormat() error = %v", err)
	}
	if got.Format != preset.FormatOBJ {
		t.Errorf("Format = %s, want OBJ", got.Format)
	}
	if got.Settings["apply_modifiers"] != true {
		t.Error("settings snapshot lost on format change")
	}
}

func TestService_Delete(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateParams{Name: "Crate", MemberIDs: []string{"obj-a"}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestService_ResolveMembers(t *testing.T) {
	svc, host := setupService(t)

	c := &Collection{Members: []string{"obj-a", "obj-gone", "obj-c"}}
	refs := svc.ResolveMembers(c)
	if len(refs) != 2 {
		t.Fatalf("ResolveMembers() = %v, want 2 live refs", refs)
	}

	host.Update(scene.State{SceneID: "scene-1"})
	if got := svc.ResolveMembers(c); len(got) != 0 {
		t.Errorf("ResolveMembers() after scene clear = %v, want none", got)
	}
}

func TestService_AddMembers_ConcurrentAddsKeepAll(t *testing.T) {
	svc, host := setupService(t)

	objects := make([]scene.ObjectRef, 10)
	for i := range objects {
		objects[i] = scene.ObjectRef{ID: fmt.Sprintf("obj-%d", i), Name: fmt.Sprintf("part_%d", i)}
	}
	host.Update(scene.State{SceneID: "scene-1", ScenePath: "/proj/scenes/main.blend", Objects: objects})

	c, err := svc.Create(context.Background(), CreateParams{
		Name:      "Assembly",
		MemberIDs: []string{"obj-0"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var wg sync.WaitGroup
	for i := 1; i < len(objects); i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := svc.AddMembers(context.Background(), c.ID, []string{id}); err != nil {
				t.Errorf("AddMembers(%s) error = %v", id, err)
			}
		}(objects[i].ID)
	}
	wg.Wait()

	got, err := svc.Get(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Members) != len(objects) {
		t.Fatalf("Members = %d, want %d: %v", len(got.Members), len(objects), got.Members)
	}
}

func TestService_Create_ConcurrentDuplicateName(t *testing.T) {
	svc, _ := setupService(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateParams{
				Name:      "Crate",
				MemberIDs: []string{"obj-a"},
			})
		}(i)
	}
	wg.Wait()

	var created, duplicate int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		default:
			var dup *DuplicateNameError
			if !errors.As(err, &dup) {
				t.Fatalf("error = %v, want DuplicateNameError", err)
			}
			duplicate++
		}
	}
	if created != 1 || duplicate != 1 {
		t.Fatalf("created = %d, duplicate = %d, want 1 each", created, duplicate)
	}
}
