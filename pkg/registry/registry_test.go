package registry

import (
	"fmt"
	"sync"
	"testing"
)

type testEntry struct {
	ID    string
	Label string
}

func TestBaseRegistry_Register(t *testing.T) {
	reg := NewBaseRegistry[testEntry]()

	tests := []struct {
		name    string
		entry   testEntry
		wantErr bool
	}{
		{
			name:    "register valid entry",
			entry:   testEntry{ID: "general", Label: "General Assistant"},
			wantErr: false,
		},
		{
			name:    "register entry with empty name",
			entry:   testEntry{ID: "", Label: "Nameless"},
			wantErr: true,
		},
		{
			name:    "register duplicate entry",
			entry:   testEntry{ID: "general", Label: "Duplicate"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.entry.ID, tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("BaseRegistry.Register() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseRegistry_Get(t *testing.T) {
	reg := NewBaseRegistry[testEntry]()

	entry := testEntry{ID: "data", Label: "Data Assistant"}
	if err := reg.Register(entry.ID, entry); err != nil {
		t.Fatalf("Failed to register entry: %v", err)
	}

	got, ok := reg.Get("data")
	if !ok {
		t.Fatal("BaseRegistry.Get() ok = false, want true")
	}
	if got.Label != entry.Label {
		t.Errorf("BaseRegistry.Get() Label = %v, want %v", got.Label, entry.Label)
	}

	if _, ok := reg.Get("missing"); ok {
		t.Error("BaseRegistry.Get() ok = true for missing entry, want false")
	}
}

func TestBaseRegistry_Keys(t *testing.T) {
	reg := NewBaseRegistry[testEntry]()

	for _, id := range []string{"regulations", "data", "general"} {
		if err := reg.Register(id, testEntry{ID: id}); err != nil {
			t.Fatalf("Failed to register %s: %v", id, err)
		}
	}

	keys := reg.Keys()
	want := []string{"data", "general", "regulations"}
	if len(keys) != len(want) {
		t.Fatalf("BaseRegistry.Keys() length = %d, want %d", len(keys), len(want))
	}
	for i, k := range want {
		if keys[i] != k {
			t.Errorf("BaseRegistry.Keys()[%d] = %s, want %s", i, keys[i], k)
		}
	}
}

func TestBaseRegistry_Remove(t *testing.T) {
	reg := NewBaseRegistry[testEntry]()

	if err := reg.Remove("missing"); err == nil {
		t.Error("BaseRegistry.Remove() expected error for missing entry")
	}

	if err := reg.Register("general", testEntry{ID: "general"}); err != nil {
		t.Fatalf("Failed to register entry: %v", err)
	}
	if err := reg.Remove("general"); err != nil {
		t.Errorf("BaseRegistry.Remove() error = %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("BaseRegistry.Count() = %d after remove, want 0", reg.Count())
	}
}

func TestBaseRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewBaseRegistry[testEntry]()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("agent-%d", n)
			if err := reg.Register(id, testEntry{ID: id}); err != nil {
				t.Errorf("concurrent Register(%s) failed: %v", id, err)
			}
			if _, ok := reg.Get(id); !ok {
				t.Errorf("concurrent Get(%s) missed", id)
			}
		}(i)
	}
	wg.Wait()

	if reg.Count() != 16 {
		t.Errorf("BaseRegistry.Count() = %d, want 16", reg.Count())
	}
}
