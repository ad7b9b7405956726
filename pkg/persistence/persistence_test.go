package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*ConnectionStore, *KVStore) {
	t.Helper()
	kv := NewKVStore(filepath.Join(t.TempDir(), "sub", "settings.json"))
	return NewConnectionStore(kv), kv
}

func TestConnectionStore(t *testing.T) {
	t.Run("LoadNonExistent", func(t *testing.T) {
		store, _ := newTestStore(t)

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %v, want nil for missing settings", got)
		}

		def, err := store.LoadOrDefault()
		if err != nil {
			t.Fatalf("LoadOrDefault() error = %v", err)
		}
		if def != DefaultConnection() {
			t.Errorf("LoadOrDefault() = %+v, want defaults", def)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		store, _ := newTestStore(t)

		settings := &ConnectionSettings{Host: "10.0.0.7", Port: 8080, TimeoutMs: 5000}
		if err := store.Save(settings); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if settings.SavedAt.IsZero() {
			t.Error("SavedAt not set")
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Host != "10.0.0.7" || got.Port != 8080 || got.TimeoutMs != 5000 {
			t.Errorf("Load() = %+v", got)
		}
		if got.Version != SettingsVersion {
			t.Errorf("Version = %d, want %d", got.Version, SettingsVersion)
		}
		if got.Timeout() != 5*time.Second {
			t.Errorf("Timeout() = %v, want 5s", got.Timeout())
		}
		if got.Address() != "10.0.0.7:8080" {
			t.Errorf("Address() = %q", got.Address())
		}
	})

	t.Run("SaveRejectsInvalid", func(t *testing.T) {
		store, kv := newTestStore(t)

		tests := []ConnectionSettings{
			{Host: "", Port: 80, TimeoutMs: 10000},
			{Host: "http://x", Port: 80, TimeoutMs: 10000},
			{Host: "x", Port: 0, TimeoutMs: 10000},
			{Host: "x", Port: 70000, TimeoutMs: 10000},
			{Host: "x", Port: 80, TimeoutMs: 999},
			{Host: "x", Port: 80, TimeoutMs: 60001},
		}
		for _, s := range tests {
			if err := store.Save(&s); err == nil {
				t.Errorf("Save(%+v) succeeded, want error", s)
			}
		}
		if _, err := os.Stat(kv.Path()); !os.IsNotExist(err) {
			t.Error("invalid settings were written")
		}
	})

	t.Run("LoadOrDefaultRepairsFields", func(t *testing.T) {
		store, kv := newTestStore(t)
		if err := kv.Set(ConnectionKey, map[string]any{"host": "10.0.0.9", "timeout_ms": 5}); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		got, err := store.LoadOrDefault()
		if err != nil {
			t.Fatalf("LoadOrDefault() error = %v", err)
		}
		if got.Host != "10.0.0.9" || got.Port != DefaultPort || got.TimeoutMs != DefaultTimeoutMs {
			t.Errorf("LoadOrDefault() = %+v", got)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store, kv := newTestStore(t)
		if err := store.Save(&ConnectionSettings{Host: "h", Port: 80, TimeoutMs: 2000}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("second Clear() error = %v", err)
		}
		if _, err := os.Stat(kv.Path()); !os.IsNotExist(err) {
			t.Error("settings file still exists")
		}
	})
}

func TestKVStore(t *testing.T) {
	kv := NewKVStore(filepath.Join(t.TempDir(), "kv.json"))

	var v string
	if err := kv.Get("a", &v); err == nil {
		t.Fatal("Get() on empty store succeeded")
	}

	if err := kv.Set("b", "two"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set("a", "one"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Get("a", &v); err != nil || v != "one" {
		t.Errorf("Get(a) = %q, %v", v, err)
	}

	keys, err := kv.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("Keys() = %v", keys)
	}

	if err := kv.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := kv.Delete("missing"); err != nil {
		t.Fatalf("Delete(missing) error = %v", err)
	}
	if err := kv.Get("b", &v); err != nil || v != "two" {
		t.Errorf("Get(b) = %q, %v", v, err)
	}
}

func TestKVStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	kv := NewKVStore(path)

	var v string
	if err := kv.Get("a", &v); err == nil {
		t.Error("Get() on corrupt file succeeded")
	}
	if err := kv.Set("a", "x"); err == nil {
		t.Error("Set() on corrupt file succeeded")
	}
}
