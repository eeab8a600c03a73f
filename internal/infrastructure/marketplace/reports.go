package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"slices"

	"github.com/sellerledger/backend/internal/domain/integration"
)

const (
	reportsPath = "/reports/2021-06-30"
	// SettlementReportType is the flat-file settlement report
	SettlementReportType = "GET_V2_SETTLEMENT_REPORT_DATA_FLAT_FILE_V2"
)

// ListSettlementDocuments lists finished settlement reports created in the
// request window, following pagination
func (c *Client) ListSettlementDocuments(ctx context.Context, req integration.SettlementListRequest) ([]integration.SettlementDocumentRef, error) {
	if err := req.Account.Validate(); err != nil {
		return nil, err
	}

	var refs []integration.SettlementDocumentRef
	next := ""
	for {
		query := url.Values{}
		if next != "" {
			query.Set("nextToken", next)
		} else {
			query.Set("reportTypes", SettlementReportType)
			query.Set("processingStatuses", "DONE")
			query.Set("pageSize", "100")
			if !req.CreatedAfter.IsZero() {
				query.Set("createdSince", formatTime(req.CreatedAfter))
			}
			if !req.CreatedBefore.IsZero() {
				query.Set("createdUntil", formatTime(req.CreatedBefore))
			}
			if req.MarketplaceID != "" {
				query.Set("marketplaceIds", req.MarketplaceID)
			}
		}

		body, err := c.doGet(ctx, req.Account, reportsPath+"/reports", query, c.config.MaxResponseSize)
		if err != nil {
			return nil, err
		}
		payload, err := decodePayload(body)
		if err != nil {
			return nil, err
		}

		for _, r := range payload.List("Reports") {
			ref, ok := convertReport(r, req.MarketplaceID)
			if ok {
				refs = append(refs, ref)
			}
		}
		next = payload.String("NextToken")
		if next == "" {
			return refs, nil
		}
	}
}

// DownloadSettlementDocument resolves the document and downloads its raw
// content. The content may be gzip compressed.
func (c *Client) DownloadSettlementDocument(ctx context.Context, account integration.SellerAccount, documentID string) ([]byte, error) {
	if documentID == "" {
		return nil, fmt.Errorf("marketplace: document id is required")
	}
	body, err := c.doGet(ctx, account, reportsPath+"/documents/"+url.PathEscape(documentID), nil, c.config.MaxResponseSize)
	if err != nil {
		return nil, err
	}
	doc, err := decodePayload(body)
	if err != nil {
		return nil, err
	}
	target := doc.String("Url")
	if target == "" {
		return nil, fmt.Errorf("%w: document %s has no download url", integration.ErrRemoteInvalidResponse, documentID)
	}
	// Download URLs are presigned and must not carry the access token.
	return c.fetch(ctx, target, "", c.config.MaxDocumentSize)
}

func convertReport(r record, marketplaceID string) (integration.SettlementDocumentRef, bool) {
	if status := r.String("ProcessingStatus"); status != "" && status != "DONE" {
		return integration.SettlementDocumentRef{}, false
	}
	docID := r.String("ReportDocumentId")
	if docID == "" {
		return integration.SettlementDocumentRef{}, false
	}
	marketplaces := r.Strings("MarketplaceIds")
	if marketplaceID != "" && len(marketplaces) > 0 && !slices.Contains(marketplaces, marketplaceID) {
		return integration.SettlementDocumentRef{}, false
	}
	ref := integration.SettlementDocumentRef{
		DocumentID:  docID,
		CreatedAt:   r.Time("CreatedTime"),
		PeriodStart: r.Time("DataStartTime"),
		PeriodEnd:   r.Time("DataEndTime"),
	}
	if len(marketplaces) > 0 {
		ref.MarketplaceID = marketplaces[0]
	}
	return ref, true
}
