package settlement

import (
	"context"

	"github.com/sellerledger/backend/internal/domain/integration"
	"go.uber.org/zap"
)

// Loader fetches settlement documents, preferring the archive over the remote
// download, and parses them
type Loader struct {
	source       integration.SettlementDocumentSource
	archive      integration.SettlementArchive
	writeArchive bool
	parseOpts    []Option
	logger       *zap.Logger
}

// LoaderOption is a functional option for Loader
type LoaderOption func(*Loader)

// WithArchive reads documents from archive first. When write is true,
// downloaded documents are stored in the archive.
func WithArchive(archive integration.SettlementArchive, write bool) LoaderOption {
	return func(l *Loader) {
		l.archive = archive
		l.writeArchive = write
	}
}

// WithParseOptions passes options to Parse
func WithParseOptions(opts ...Option) LoaderOption {
	return func(l *Loader) {
		l.parseOpts = append(l.parseOpts, opts...)
	}
}

// WithLoaderLogger sets the logger
func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader over a document source
func NewLoader(source integration.SettlementDocumentSource, opts ...LoaderOption) *Loader {
	l := &Loader{
		source: source,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ReadOnly returns a copy of the loader that reads the archive but never
// writes to it
func (l *Loader) ReadOnly() *Loader {
	ro := *l
	ro.writeArchive = false
	return &ro
}

// List returns the documents available for the request
func (l *Loader) List(ctx context.Context, req integration.SettlementListRequest) ([]integration.SettlementDocumentRef, error) {
	return l.source.ListSettlementDocuments(ctx, req)
}

// Load returns the parsed document. Archive failures are logged and fall back
// to the remote download.
func (l *Loader) Load(ctx context.Context, account integration.SellerAccount, ref integration.SettlementDocumentRef) (*Document, error) {
	raw, err := l.fetch(ctx, account, ref.DocumentID)
	if err != nil {
		return nil, err
	}

	opts := append([]Option{WithLocation(account.Location())}, l.parseOpts...)
	return Parse(raw, opts...)
}

func (l *Loader) fetch(ctx context.Context, account integration.SellerAccount, documentID string) ([]byte, error) {
	if l.archive != nil {
		raw, ok, err := l.archive.Get(ctx, account.ID, documentID)
		switch {
		case err != nil:
			l.logger.Warn("Settlement archive read failed, downloading",
				zap.String("account_id", account.ID),
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		case ok:
			return raw, nil
		}
	}

	raw, err := l.source.DownloadSettlementDocument(ctx, account, documentID)
	if err != nil {
		return nil, err
	}

	if l.archive != nil && l.writeArchive {
		if err := l.archive.Put(ctx, account.ID, documentID, raw); err != nil {
			l.logger.Warn("Failed to archive settlement document",
				zap.String("account_id", account.ID),
				zap.String("document_id", documentID),
				zap.Error(err),
			)
		}
	}
	return raw, nil
}
