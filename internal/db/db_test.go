package db

import (
	"path/filepath"
	"testing"

	"github.com/wesm/zenhub-mirror/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Initialize(); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestChangeEventsSince(t *testing.T) {
	d := newTestDB(t)

	events := []models.RepositoryChangeEvent{
		{RepoID: 1, Time: 100, UUID: "a"},
		{RepoID: 2, Time: 300, UUID: "b"},
		{RepoID: 3, Time: 200, UUID: "c"},
	}
	for _, e := range events {
		if err := d.SaveChangeEvent(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := d.ChangeEventsSince(200)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 events got %d", len(got))
	}
	if got[0].UUID != "b" || got[1].UUID != "c" {
		t.Errorf("want append order b,c got %s,%s", got[0].UUID, got[1].UUID)
	}

	none, err := d.ChangeEventsSince(1000)
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("want empty non-nil slice got %#v", none)
	}
}

func TestSaveChangeEvent_DuplicateUUID(t *testing.T) {
	d := newTestDB(t)
	e := models.RepositoryChangeEvent{RepoID: 42, Time: 1, UUID: "same"}
	if err := d.SaveChangeEvent(e); err != nil {
		t.Fatal(err)
	}
	if err := d.SaveChangeEvent(e); err != nil {
		t.Fatal(err)
	}
	got, err := d.ChangeEventsSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].RepoID != 42 {
		t.Errorf("want single event for repo 42 got %+v", got)
	}
}
