package relay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/darius0048/pokelink/protocol"
)

func TestMemorySaveStore(t *testing.T) {
	store := NewMemorySaveStore()

	t.Run("load before save", func(t *testing.T) {
		_, err := store.Load("AB12CD", "player-1")
		if err != ErrSaveNotFound {
			t.Errorf("Expected ErrSaveNotFound, got %v", err)
		}
	})

	t.Run("save and load", func(t *testing.T) {
		state := SaveState{
			Data:       "c2F2ZWRhdGE=",
			Screenshot: "cG5n",
			Timestamp:  protocol.Timestamp(),
		}
		if err := store.Save("AB12CD", "player-1", state); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		loaded, err := store.Load("AB12CD", "player-1")
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if loaded.Data != state.Data {
			t.Errorf("Expected data %s, got %s", state.Data, loaded.Data)
		}
		if loaded.Screenshot != state.Screenshot {
			t.Errorf("Expected screenshot %s, got %s", state.Screenshot, loaded.Screenshot)
		}
	})

	t.Run("saves are per player", func(t *testing.T) {
		if _, err := store.Load("AB12CD", "player-2"); err != ErrSaveNotFound {
			t.Errorf("Expected ErrSaveNotFound for other player, got %v", err)
		}
	})

	t.Run("save replaces previous", func(t *testing.T) {
		store.Save("AB12CD", "player-1", SaveState{Data: "bmV3"})
		loaded, err := store.Load("AB12CD", "player-1")
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if loaded.Data != "bmV3" {
			t.Errorf("Expected replaced data, got %s", loaded.Data)
		}
	})
}

func TestFileSaveStore(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "saves_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	store, err := NewFileSaveStore(tempDir)
	if err != nil {
		t.Fatalf("Failed to create file save store: %v", err)
	}

	t.Run("save writes a file", func(t *testing.T) {
		state := SaveState{Data: "c2F2ZWRhdGE=", Timestamp: protocol.Timestamp()}
		if err := store.Save("AB12CD", "player-1", state); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		path := filepath.Join(tempDir, "AB12CD_player-1.json")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected save file at %s: %v", path, err)
		}
	})

	t.Run("load round trip", func(t *testing.T) {
		loaded, err := store.Load("AB12CD", "player-1")
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if loaded.Data != "c2F2ZWRhdGE=" {
			t.Errorf("Expected saved data back, got %s", loaded.Data)
		}
	})

	t.Run("load missing save", func(t *testing.T) {
		_, err := store.Load("AB12CD", "player-9")
		if err != ErrSaveNotFound {
			t.Errorf("Expected ErrSaveNotFound, got %v", err)
		}
	})

	t.Run("saves survive a new store instance", func(t *testing.T) {
		reopened, err := NewFileSaveStore(tempDir)
		if err != nil {
			t.Fatalf("Failed to reopen store: %v", err)
		}
		loaded, err := reopened.Load("AB12CD", "player-1")
		if err != nil {
			t.Fatalf("Failed to load after reopen: %v", err)
		}
		if loaded.Data != "c2F2ZWRhdGE=" {
			t.Errorf("Expected persisted data, got %s", loaded.Data)
		}
	})
}

func TestFileSaveStoreCreatesDirectory(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "saves_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tempDir)

	nested := filepath.Join(tempDir, "data", "saves")
	if _, err := NewFileSaveStore(nested); err != nil {
		t.Fatalf("Failed to create store in nested directory: %v", err)
	}
	if _, err := os.Stat(nested); err != nil {
		t.Errorf("Expected directory to be created: %v", err)
	}
}
