package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-assistant/errors"
	"github.com/johnquangdev/call-assistant/internal/domain/entities"
)

// FileCallRepository stores one JSON document per call under <dataDir>/calls
// plus a single index document listing summaries newest first.
//
// Every write goes to a temp file in the same directory followed by an atomic
// rename, so readers never observe a half-written record even while an update
// is in flight. Read-modify-write sequences are serialized per call id; the
// index has its own lock taken inside the per-id critical section.
type FileCallRepository struct {
	callsDir  string
	indexPath string
	logger    *zap.Logger

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	indexMu sync.RWMutex
}

// NewFileCallRepository prepares the data directory and returns the repository.
func NewFileCallRepository(dataDir string, logger *zap.Logger) (*FileCallRepository, error) {
	callsDir := filepath.Join(dataDir, "calls")
	if err := os.MkdirAll(callsDir, 0o755); err != nil {
		return nil, errors.ErrStorageFailed("create data directory", err)
	}
	return &FileCallRepository{
		callsDir:  callsDir,
		indexPath: filepath.Join(dataDir, "index.json"),
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

// lockFor returns the mutex serializing writes for a single call id.
func (r *FileCallRepository) lockFor(id string) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	mu, ok := r.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		r.locks[id] = mu
	}
	return mu
}

func (r *FileCallRepository) callPath(id string) string {
	return filepath.Join(r.callsDir, id+".json")
}

// Create persists a new call record and prepends its index entry.
func (r *FileCallRepository) Create(ctx context.Context, call *entities.Call) error {
	mu := r.lockFor(call.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := writeJSONAtomic(r.callPath(call.ID), call); err != nil {
		return errors.ErrStorageFailed("write call record", err).WithDetail("call_id", call.ID)
	}
	return r.upsertIndexEntry(call.IndexEntry())
}

// Get retrieves a call by id.
func (r *FileCallRepository) Get(ctx context.Context, id string) (*entities.Call, error) {
	data, err := os.ReadFile(r.callPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrCallNotFound(id)
		}
		return nil, errors.ErrStorageFailed("read call record", err).WithDetail("call_id", id)
	}

	var call entities.Call
	if err := json.Unmarshal(data, &call); err != nil {
		return nil, errors.ErrStorageFailed("decode call record", err).WithDetail("call_id", id)
	}
	return &call, nil
}

// Update applies mutate under the per-id lock and refreshes the index entry.
func (r *FileCallRepository) Update(ctx context.Context, id string, mutate func(*entities.Call) error) (*entities.Call, error) {
	mu := r.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	call, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := mutate(call); err != nil {
		return nil, err
	}
	if call.ID != id {
		// The id is the storage key; a mutator must never touch it.
		return nil, errors.ErrStorageFailed("update call record", nil).
			WithDetail("call_id", id).
			WithDetail("reason", "mutator changed record id")
	}

	if err := writeJSONAtomic(r.callPath(id), call); err != nil {
		return nil, errors.ErrStorageFailed("write call record", err).WithDetail("call_id", id)
	}
	if err := r.upsertIndexEntry(call.IndexEntry()); err != nil {
		return nil, err
	}
	return call, nil
}

// ListSummaries returns the index entries, newest first.
func (r *FileCallRepository) ListSummaries(ctx context.Context) ([]entities.CallSummary, error) {
	r.indexMu.RLock()
	defer r.indexMu.RUnlock()
	return r.readIndex()
}

// FindByConversationID linearly scans the index for a matching conversation id.
func (r *FileCallRepository) FindByConversationID(ctx context.Context, conversationID string) (*entities.Call, error) {
	r.indexMu.RLock()
	summaries, err := r.readIndex()
	r.indexMu.RUnlock()
	if err != nil {
		return nil, err
	}

	for _, s := range summaries {
		if s.ConversationID != nil && *s.ConversationID == conversationID {
			return r.Get(ctx, s.ID)
		}
	}
	return nil, errors.ErrCallNotFound("").WithDetail("conversation_id", conversationID)
}

// upsertIndexEntry replaces the entry for the call or, for a new call,
// prepends it so the index stays newest first.
func (r *FileCallRepository) upsertIndexEntry(entry entities.CallSummary) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	summaries, err := r.readIndex()
	if err != nil {
		return err
	}

	replaced := false
	for i := range summaries {
		if summaries[i].ID == entry.ID {
			summaries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		summaries = append([]entities.CallSummary{entry}, summaries...)
	}

	if err := writeJSONAtomic(r.indexPath, summaries); err != nil {
		return errors.ErrStorageFailed("write call index", err).WithDetail("call_id", entry.ID)
	}
	return nil
}

// readIndex loads the index; a missing file is an empty index.
func (r *FileCallRepository) readIndex() ([]entities.CallSummary, error) {
	data, err := os.ReadFile(r.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []entities.CallSummary{}, nil
		}
		return nil, errors.ErrStorageFailed("read call index", err)
	}

	var summaries []entities.CallSummary
	if err := json.Unmarshal(data, &summaries); err != nil {
		return nil, errors.ErrStorageFailed("decode call index", err)
	}
	return summaries, nil
}

// writeJSONAtomic marshals v and replaces path via a same-directory temp file
// and rename, so concurrent readers see either the old or the new document.
func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
