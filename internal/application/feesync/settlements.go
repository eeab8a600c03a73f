package feesync

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sellerledger/backend/internal/domain/integration"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/logger"
	"github.com/sellerledger/backend/internal/infrastructure/settlement"
	"github.com/sellerledger/backend/internal/infrastructure/telemetry"
)

// ErrSettlementsDisabled is returned when no settlement source is configured
var ErrSettlementsDisabled = errors.New("feesync: settlement sync is not configured")

// RunSettlementSync loads the settlement documents created since the
// settlements cursor, oldest first, and upgrades the fees of their order
// lines to the settlement source. A malformed document is skipped; a document
// that could not be downloaded holds the cursor so the next run retries it.
func (s *Service) RunSettlementSync(ctx context.Context, accountID string, trigger integration.RunTrigger) (*integration.SyncRunRecord, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if s.deps.Settlements == nil {
		return nil, ErrSettlementsDisabled
	}
	return s.execute(ctx, account, integration.SyncTypeSettlements, trigger, func(ctx context.Context, run *integration.SyncRunRecord) (*cursorAdvance, error) {
		return s.syncSettlements(ctx, account, run)
	})
}

func (s *Service) syncSettlements(ctx context.Context, account *integration.SellerAccount, run *integration.SyncRunRecord) (*cursorAdvance, error) {
	log := logger.FromContext(ctx)
	now := s.now()

	from := now.AddDate(0, 0, -s.config.SettlementLookbackDays)
	cursor, err := s.deps.Cursors.Get(ctx, account.ID, integration.SyncTypeSettlements)
	if err != nil {
		return nil, err
	}
	if cursor != nil && !cursor.Watermark.IsZero() {
		from = cursor.Watermark
	}
	run.SetWindow(from, now)

	var refs []integration.SettlementDocumentRef
	err = s.callRemote(ctx, "list_settlements", func(ctx context.Context) error {
		var err error
		refs, err = s.deps.Settlements.List(ctx, integration.SettlementListRequest{
			Account:       *account,
			CreatedAfter:  from,
			CreatedBefore: now,
			MarketplaceID: account.MarketplaceID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].CreatedAt.Before(refs[j].CreatedAt) })
	log.Info("Settlement documents listed", zap.Int("documents", len(refs)))

	var advance *cursorAdvance
	held := false
	for _, ref := range refs {
		if cursor != nil && ref.DocumentID == cursor.Position {
			continue
		}
		if err := ctx.Err(); err != nil {
			run.Abort(err)
			break
		}

		err := s.syncSettlementDocument(ctx, account, run, ref, now)
		switch {
		case err == nil:
		case errors.Is(err, integration.ErrStoreWrite):
			run.Abort(err)
			return advance, nil
		case errors.Is(err, integration.ErrMalformedDocument):
			log.Warn("Skipping malformed settlement document", zap.String("document_id", ref.DocumentID), zap.Error(err))
			run.RecordFailure(ref.DocumentID, err)
		default:
			log.Warn("Failed to load settlement document", zap.String("document_id", ref.DocumentID), zap.Error(err))
			run.RecordFailure(ref.DocumentID, err)
			held = true
		}
		if !held {
			advance = &cursorAdvance{Position: ref.DocumentID, Watermark: ref.CreatedAt}
		}
	}
	return advance, nil
}

// syncSettlementDocument loads one document and writes its per-line fees
func (s *Service) syncSettlementDocument(
	ctx context.Context,
	account *integration.SellerAccount,
	run *integration.SyncRunRecord,
	ref integration.SettlementDocumentRef,
	now time.Time,
) error {
	ctx, span := telemetry.StartSpan(ctx, "feesync.settlement_document",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, ref.DocumentID),
	)
	defer span.End()

	var doc *settlement.Document
	err := s.callRemote(ctx, "download_settlement", func(ctx context.Context) error {
		var err error
		doc, err = s.deps.Settlements.Load(ctx, *account, ref)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	_, assignments, err := s.classifier.ClassifySeq(doc.Rows())
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.recordGaps(ctx, assignments)
	telemetry.SetAttributes(span, "settlement_id", doc.SettlementID, "rows", len(assignments))

	return s.storeLineFees(ctx, account.ID, run, orderAssignments(assignments), ledger.FeeSourceSettlementReport, now)
}
