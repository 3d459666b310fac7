package scene

import "testing"

func testState() State {
	return State{
		SceneID:   "scene-1",
		ScenePath: "/proj/main.blend",
		Objects: []ObjectRef{
			{ID: "obj-a", Name: "crate"},
			{ID: "obj-b", Name: "barrel"},
		},
		Selected: []string{"obj-b", "obj-gone"},
	}
}

func TestStateStore_Resolve(t *testing.T) {
	s := NewStateStore()
	s.Update(testState())

	obj, ok := s.Resolve("obj-a")
	if !ok || obj.Name != "crate" {
		t.Errorf("Resolve(obj-a) = %+v, %v", obj, ok)
	}
	if _, ok := s.Resolve("obj-gone"); ok {
		t.Error("Resolve(obj-gone) should miss")
	}
}

func TestStateStore_EnumerateSelected_SkipsUnknownIDs(t *testing.T) {
	s := NewStateStore()
	s.Update(testState())

	selected := s.EnumerateSelected()
	if len(selected) != 1 || selected[0].ID != "obj-b" {
		t.Errorf("EnumerateSelected() = %v, want [obj-b]", selected)
	}
}

func TestStateStore_UpdateReplacesSnapshot(t *testing.T) {
	s := NewStateStore()
	s.Update(testState())

	s.Update(State{SceneID: "scene-2"})

	if s.SceneID() != "scene-2" {
		t.Errorf("SceneID() = %q, want scene-2", s.SceneID())
	}
	if s.CurrentScenePath() != "" {
		t.Errorf("CurrentScenePath() = %q, want empty", s.CurrentScenePath())
	}
	if got := s.EnumerateObjects(); len(got) != 0 {
		t.Errorf("EnumerateObjects() = %v, want none", got)
	}
	if _, ok := s.Resolve("obj-a"); ok {
		t.Error("stale object still resolvable after Update")
	}
}

func TestStateStore_Empty(t *testing.T) {
	s := NewStateStore()

	if s.SceneID() != "" || s.CurrentScenePath() != "" {
		t.Error("empty store should report empty scene")
	}
	if got := s.EnumerateSelected(); len(got) != 0 {
		t.Errorf("EnumerateSelected() = %v", got)
	}
}
