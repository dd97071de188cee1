package shipments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/courier"
	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"

	"github.com/smartmall/fulfillment-backend/internal/inventory"
	"github.com/smartmall/fulfillment-backend/internal/ledger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// InventoryRelocator applies the stock move for a delivered leg inside the
// caller's transaction.
type InventoryRelocator interface {
	Relocate(ctx context.Context, tx *gorm.DB, move inventory.Move) error
}

// LedgerRecorder materializes COD and bonus transactions exactly once per
// shipment inside the caller's transaction.
type LedgerRecorder interface {
	HasShipmentTransaction(ctx context.Context, tx *gorm.DB, shipmentID uuid.UUID, txnType enums.AgentTransactionType) (bool, error)
	RecordInTx(ctx context.Context, tx *gorm.DB, input ledger.RecordTransactionInput) (*models.AgentTransaction, error)
}

// OrderPromoter promotes the owning order to delivered exactly once when the
// shipment's final leg completes.
type OrderPromoter interface {
	PromoteDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

// CourierGateway is the external courier surface used at registration,
// cancellation and fee quoting.
type CourierGateway interface {
	Register(ctx context.Context, req courier.RegisterRequest) (string, error)
	Cancel(ctx context.Context, trackingCode string) error
	FetchStatus(ctx context.Context, trackingCode string) (string, error)
	QuoteFee(ctx context.Context, req courier.QuoteRequest) (decimal.Decimal, error)
	Label(ctx context.Context, trackingCode string) ([]byte, error)
}

type orderPromoterImpl struct{}

// NewOrderPromoter exposes the default order promotion implementation.
func NewOrderPromoter() OrderPromoter {
	return orderPromoterImpl{}
}

func (orderPromoterImpl) PromoteDelivered(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for order promotion")
	}

	// Guarded by current status so re-derivation never promotes twice.
	res := tx.WithContext(ctx).Exec(`
		UPDATE orders
		SET status = 'delivered',
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status <> 'delivered'
	`, orderID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "promote order")
	}
	return nil
}
