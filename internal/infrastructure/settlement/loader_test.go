package settlement

import (
	"context"
	"errors"
	"testing"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	docs      map[string][]byte
	downloads int
	err       error
}

func (f *fakeSource) ListSettlementDocuments(_ context.Context, _ integration.SettlementListRequest) ([]integration.SettlementDocumentRef, error) {
	var refs []integration.SettlementDocumentRef
	for id := range f.docs {
		refs = append(refs, integration.SettlementDocumentRef{DocumentID: id})
	}
	return refs, f.err
}

func (f *fakeSource) DownloadSettlementDocument(_ context.Context, _ integration.SellerAccount, id string) ([]byte, error) {
	f.downloads++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs[id], nil
}

type fakeArchive struct {
	stored map[string][]byte
	getErr error
}

func (a *fakeArchive) Put(_ context.Context, accountID, documentID string, content []byte) error {
	a.stored[accountID+"/"+documentID] = content
	return nil
}

func (a *fakeArchive) Get(_ context.Context, accountID, documentID string) ([]byte, bool, error) {
	if a.getErr != nil {
		return nil, false, a.getErr
	}
	c, ok := a.stored[accountID+"/"+documentID]
	return c, ok, nil
}

func TestLoader_DownloadsAndArchives(t *testing.T) {
	source := &fakeSource{docs: map[string][]byte{
		"doc-1": buildDocument(orderLine("111-1", "ItemFees", "Referral Fee", "-4.50")),
	}}
	archive := &fakeArchive{stored: map[string][]byte{}}
	loader := NewLoader(source, WithArchive(archive, true))
	account := integration.SellerAccount{ID: "acct-1"}
	ref := integration.SettlementDocumentRef{DocumentID: "doc-1"}

	doc, err := loader.Load(context.Background(), account, ref)
	require.NoError(t, err)
	rows, err := doc.Collect()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Contains(t, archive.stored, "acct-1/doc-1")

	// second load is served from the archive
	_, err = loader.Load(context.Background(), account, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, source.downloads)
}

func TestLoader_ReadOnlyArchive(t *testing.T) {
	source := &fakeSource{docs: map[string][]byte{
		"doc-1": buildDocument(orderLine("111-1", "ItemFees", "Referral Fee", "-4.50")),
	}}
	archive := &fakeArchive{stored: map[string][]byte{}}
	loader := NewLoader(source, WithArchive(archive, false))

	_, err := loader.Load(context.Background(), integration.SellerAccount{ID: "acct-1"}, integration.SettlementDocumentRef{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Empty(t, archive.stored)
}

func TestLoader_ReadOnlyCopy(t *testing.T) {
	source := &fakeSource{docs: map[string][]byte{
		"doc-1": buildDocument(orderLine("111-1", "ItemFees", "Referral Fee", "-4.50")),
		"doc-2": buildDocument(orderLine("111-2", "ItemFees", "Referral Fee", "-1.50")),
	}}
	archive := &fakeArchive{stored: map[string][]byte{}}
	writer := NewLoader(source, WithArchive(archive, true))
	reader := writer.ReadOnly()
	account := integration.SellerAccount{ID: "acct-1"}

	_, err := reader.Load(context.Background(), account, integration.SettlementDocumentRef{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Empty(t, archive.stored)

	// the original loader still archives and the copy reads what it stored
	_, err = writer.Load(context.Background(), account, integration.SettlementDocumentRef{DocumentID: "doc-2"})
	require.NoError(t, err)
	assert.Len(t, archive.stored, 1)

	_, err = reader.Load(context.Background(), account, integration.SettlementDocumentRef{DocumentID: "doc-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, source.downloads)
}

func TestLoader_ArchiveFailureFallsBackToDownload(t *testing.T) {
	source := &fakeSource{docs: map[string][]byte{
		"doc-1": buildDocument(orderLine("111-1", "ItemFees", "Referral Fee", "-4.50")),
	}}
	archive := &fakeArchive{stored: map[string][]byte{}, getErr: errors.New("bucket unavailable")}
	loader := NewLoader(source, WithArchive(archive, false))

	_, err := loader.Load(context.Background(), integration.SellerAccount{ID: "acct-1"}, integration.SettlementDocumentRef{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, source.downloads)
}

func TestLoader_Errors(t *testing.T) {
	source := &fakeSource{docs: map[string][]byte{"bad": []byte("not a settlement document")}}
	loader := NewLoader(source)

	_, err := loader.Load(context.Background(), integration.SellerAccount{ID: "acct-1"}, integration.SettlementDocumentRef{DocumentID: "bad"})
	assert.ErrorIs(t, err, integration.ErrMalformedDocument)

	source.err = integration.ErrRemoteRateLimited
	_, err = loader.Load(context.Background(), integration.SellerAccount{ID: "acct-1"}, integration.SettlementDocumentRef{DocumentID: "bad"})
	assert.ErrorIs(t, err, integration.ErrRemoteAPI)
}
