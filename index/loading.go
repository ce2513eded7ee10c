package index

import (
	"context"
	"fmt"

	"github.com/aqua777/indexquery/settings"
	"github.com/aqua777/indexquery/storage"
	"github.com/aqua777/indexquery/storage/indexstore"
)

// LoadIndexFromStorage rebuilds the index described by the storage context.
// An empty indexID selects the only index in the store.
func LoadIndexFromStorage(ctx context.Context, sc *storage.StorageContext, svc *settings.ServiceContext, indexID string) (Index, error) {
	is, err := sc.IndexStore.GetIndexStruct(ctx, indexID)
	if err != nil {
		return nil, fmt.Errorf("failed to load index struct: %w", err)
	}

	switch is.Type {
	case indexstore.IndexStructTypeVectorStore:
		return newVectorStoreIndex(is, svc, []VectorStoreIndexOption{
			WithVectorIndexStorage(WithStorageContext(sc)),
		}), nil
	case indexstore.IndexStructTypeList:
		return &ListIndex{BaseIndex: NewBaseIndex(is, svc, WithStorageContext(sc))}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedIndexType, is.Type)
	}
}
