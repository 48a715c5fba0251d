package repositories

import (
	"context"

	"github.com/johnquangdev/call-assistant/internal/domain/entities"
)

// CallRepository defines persistence operations for call records.
//
// Update takes a mutator instead of a whole record so that read-modify-write
// sequences against the same call id are serialized inside the repository;
// concurrent updates to different fields of the same record must both land.
type CallRepository interface {
	// Create persists a new call record and its index entry.
	Create(ctx context.Context, call *entities.Call) error

	// Get retrieves a call by id. Returns errors.ErrCallNotFound when the id
	// is unknown, never an empty record.
	Get(ctx context.Context, id string) (*entities.Call, error)

	// Update applies mutate to the stored record under the per-id lock,
	// persists the result atomically and refreshes the index entry.
	// Returns the record as persisted.
	Update(ctx context.Context, id string, mutate func(*entities.Call) error) (*entities.Call, error)

	// ListSummaries returns the index entries, newest first.
	ListSummaries(ctx context.Context) ([]entities.CallSummary, error)

	// FindByConversationID scans the index for the call whose stored
	// conversation id matches. Returns errors.ErrCallNotFound on no match.
	FindByConversationID(ctx context.Context, conversationID string) (*entities.Call, error)
}
