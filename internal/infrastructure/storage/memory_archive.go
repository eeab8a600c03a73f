package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/sellerledger/backend/internal/domain/integration"
)

// MemorySettlementArchive keeps documents in process memory. It is used when
// object storage is disabled and in tests.
type MemorySettlementArchive struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ integration.SettlementArchive = (*MemorySettlementArchive)(nil)

// NewMemorySettlementArchive creates an empty archive
func NewMemorySettlementArchive() *MemorySettlementArchive {
	return &MemorySettlementArchive{docs: make(map[string][]byte)}
}

func memoryKey(accountID, documentID string) string {
	return accountID + "/" + documentID
}

// Put stores a copy of content
func (a *MemorySettlementArchive) Put(_ context.Context, accountID, documentID string, content []byte) error {
	if accountID == "" || documentID == "" {
		return errors.New("account id and document id are required")
	}
	cp := make([]byte, len(content))
	copy(cp, content)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.docs[memoryKey(accountID, documentID)] = cp
	return nil
}

// Get returns a copy of the stored document, ok=false when missing
func (a *MemorySettlementArchive) Get(_ context.Context, accountID, documentID string) ([]byte, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	content, ok := a.docs[memoryKey(accountID, documentID)]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	return cp, true, nil
}

// Len returns the number of stored documents
func (a *MemorySettlementArchive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.docs)
}
