package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrSaveNotFound is returned when a player has no stored save state.
var ErrSaveNotFound = errors.New("save state not found")

// SaveState is one player's stored game state: the serialized save plus
// an optional screenshot, both base64-encoded by the emulator.
type SaveState struct {
	Data       string `json:"data"`
	Screenshot string `json:"screenshot,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// SaveStore persists save states per room and player.
type SaveStore interface {
	// Save stores a player's save state, replacing any previous one.
	Save(roomID, playerID string, state SaveState) error

	// Load returns a player's stored save state, or ErrSaveNotFound.
	Load(roomID, playerID string) (SaveState, error)
}

// MemorySaveStore keeps save states in process memory. Saves are lost
// when the server restarts.
type MemorySaveStore struct {
	saves map[string]SaveState
	mu    sync.RWMutex
}

// NewMemorySaveStore creates an empty in-memory save store.
func NewMemorySaveStore() *MemorySaveStore {
	return &MemorySaveStore{
		saves: make(map[string]SaveState),
	}
}

// Save stores a player's save state in memory.
func (s *MemorySaveStore) Save(roomID, playerID string, state SaveState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves[saveKey(roomID, playerID)] = state
	return nil
}

// Load returns a player's stored save state.
func (s *MemorySaveStore) Load(roomID, playerID string) (SaveState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.saves[saveKey(roomID, playerID)]
	if !ok {
		return SaveState{}, ErrSaveNotFound
	}
	return state, nil
}

func saveKey(roomID, playerID string) string {
	return roomID + "/" + playerID
}

// FileSaveStore persists save states as JSON files, one per room and
// player pair, so saves survive server restarts.
type FileSaveStore struct {
	dataDir string
}

// NewFileSaveStore creates a file-backed save store rooted at dataDir,
// creating the directory if needed.
func NewFileSaveStore(dataDir string) (*FileSaveStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	return &FileSaveStore{dataDir: dataDir}, nil
}

// Save writes a player's save state to disk.
func (s *FileSaveStore) Save(roomID, playerID string, state SaveState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal save state: %w", err)
	}
	if err := os.WriteFile(s.savePath(roomID, playerID), data, 0644); err != nil {
		return fmt.Errorf("failed to write save state: %w", err)
	}
	return nil
}

// Load reads a player's save state from disk.
func (s *FileSaveStore) Load(roomID, playerID string) (SaveState, error) {
	data, err := os.ReadFile(s.savePath(roomID, playerID))
	if err != nil {
		if os.IsNotExist(err) {
			return SaveState{}, ErrSaveNotFound
		}
		return SaveState{}, fmt.Errorf("failed to read save state: %w", err)
	}

	var state SaveState
	if err := json.Unmarshal(data, &state); err != nil {
		return SaveState{}, fmt.Errorf("failed to parse save state: %w", err)
	}
	return state, nil
}

func (s *FileSaveStore) savePath(roomID, playerID string) string {
	return filepath.Join(s.dataDir, roomID+"_"+playerID+".json")
}
