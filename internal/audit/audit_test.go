package audit

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchemaAtNestedPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.sqlite")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
}

func TestRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.sqlite")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if err := db.Record(100, "conn-a", "attach", "client attached"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := db.Record(200, "conn-a", "detach", "client detached"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Event != "detach" || events[1].Event != "attach" {
		t.Fatalf("events = %+v, want detach before attach (newest first)", events)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.sqlite")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 5; i++ {
		if err := db.Record(int64(i), "conn-a", "attach", "n"); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events, err := db.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
}
