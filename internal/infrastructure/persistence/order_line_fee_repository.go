package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sellerledger/backend/internal/domain/fees"
	"github.com/sellerledger/backend/internal/domain/ledger"
	"github.com/sellerledger/backend/internal/infrastructure/persistence/models"
)

// feeSourceRank ranks a fee_source column expression by trust; it mirrors
// ledger.FeeSource.CanReplace
const feeSourceRank = "(CASE %s WHEN 'settlement_report' THEN 2 WHEN 'api' THEN 1 ELSE 0 END)"

// GormOrderLineFeeRepository implements ledger.OrderLineFeeRepository
type GormOrderLineFeeRepository struct {
	db *gorm.DB
}

var _ ledger.OrderLineFeeRepository = (*GormOrderLineFeeRepository)(nil)

// NewGormOrderLineFeeRepository creates a new order line fee repository
func NewGormOrderLineFeeRepository(db *gorm.DB) *GormOrderLineFeeRepository {
	return &GormOrderLineFeeRepository{db: db}
}

// UpsertLineItem writes the item fields and leaves stored fee fields untouched
func (r *GormOrderLineFeeRepository) UpsertLineItem(ctx context.Context, rec *ledger.OrderLineFeeRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	model := models.OrderLineFeeModelFromDomain(rec)
	model.FeeColumns = models.FeeColumns{}
	model.FeeSource = ledger.FeeSourceNone
	model.TotalAmazonFees = decimal.Zero

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "order_item_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"order_id",
			"sku",
			"asin",
			"quantity",
			"item_price",
			"currency",
			"purchase_date",
			"updated_at",
		}),
	}).Create(model).Error
}

// UpsertFees writes the fee fields. A stored line whose fee source outranks
// rec.FeeSource is left unchanged; that is not an error.
func (r *GormOrderLineFeeRepository) UpsertFees(ctx context.Context, rec *ledger.OrderLineFeeRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.FeeSource == "" || rec.FeeSource == ledger.FeeSourceNone {
		return ledger.ErrInvalidRecord
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	model := models.OrderLineFeeModelFromDomain(rec)

	updates := append(models.FeeColumnNames(), "fee_source", "total_amazon_fees", "updated_at")
	guard := clause.Expr{
		SQL: fmt.Sprintf(feeSourceRank, "order_line_fees.fee_source") + " <= " + fmt.Sprintf(feeSourceRank, "excluded.fee_source"),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "order_item_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
		Where:     clause.Where{Exprs: []clause.Expression{guard}},
	}).Create(model).Error
}

// FindByOrder returns the lines of one order
func (r *GormOrderLineFeeRepository) FindByOrder(ctx context.Context, accountID, orderID string) ([]ledger.OrderLineFeeRecord, error) {
	var rows []models.OrderLineFeeModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND order_id = ?", accountID, orderID).
		Order("order_item_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.OrderLineFeeRecord, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// SumFeesByPurchaseDate aggregates stored fees of fee-populated lines whose
// order was purchased in [from, to). Sums are computed in decimal arithmetic
// rather than in SQL so the result does not depend on the driver's numeric
// handling.
func (r *GormOrderLineFeeRepository) SumFeesByPurchaseDate(ctx context.Context, accountID string, from, to time.Time) (*ledger.FeeAggregate, error) {
	agg := &ledger.FeeAggregate{Totals: fees.NewTotals()}

	var rows []models.OrderLineFeeModel
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND purchase_date >= ? AND purchase_date < ? AND fee_source <> ?",
			accountID, from.UTC(), to.UTC(), ledger.FeeSourceNone).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		agg.Totals.Merge(fees.TotalsFromValues(rows[i].FeeColumns.Values()))
		agg.Lines++
	}
	return agg, nil
}
