package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/smartmall/fulfillment-backend/pkg/courier"
	"github.com/smartmall/fulfillment-backend/pkg/db/models"
	"github.com/smartmall/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/smartmall/fulfillment-backend/pkg/errors"
	"github.com/smartmall/fulfillment-backend/pkg/pagination"

	"github.com/smartmall/fulfillment-backend/internal/ledger"
)

// legTransitionSources lists the statuses a leg may hold immediately before
// moving to the keyed target.
var legTransitionSources = map[enums.ShipmentStatus][]enums.ShipmentStatus{
	enums.ShipmentStatusPickingUp: {enums.ShipmentStatusPending},
	enums.ShipmentStatusInTransit: {enums.ShipmentStatusPickingUp},
	enums.ShipmentStatusDelivered: {enums.ShipmentStatusPickingUp, enums.ShipmentStatusInTransit},
	enums.ShipmentStatusCancelled: {enums.ShipmentStatusPending, enums.ShipmentStatusPickingUp, enums.ShipmentStatusInTransit},
	enums.ShipmentStatusReturning: {enums.ShipmentStatusDelivered},
	enums.ShipmentStatusReturned:  {enums.ShipmentStatusReturning},
}

// CreateShipmentInput describes a dispatch request for a confirmed order.
// Route is the ordered list of intermediate warehouses; empty means a direct
// shop-to-customer delivery.
type CreateShipmentInput struct {
	OrderID         uuid.UUID
	ShopID          uuid.UUID
	ProductID       uuid.UUID
	PickupAddress   string
	DeliveryAddress string
	CODAmount       decimal.Decimal
	ShippingFee     decimal.Decimal
	WeightGrams     int
	Route           []uuid.UUID
}

// ListShipmentsInput filters the shipment listing.
type ListShipmentsInput struct {
	Status      *enums.ShipmentStatus
	AgentID     *uuid.UUID
	WarehouseID *uuid.UUID
	Search      string
	Params      pagination.Params
}

// ShipmentList is one page of shipments.
type ShipmentList struct {
	Items      []models.Shipment
	NextCursor string
}

// QuoteFeeInput describes a prospective parcel for fee quoting.
type QuoteFeeInput struct {
	PickupAddress   string
	DeliveryAddress string
	WeightGrams     int
}

// Service orchestrates the shipment lifecycle: dispatch planning, courier
// registration, leg transitions, aggregate derivation and the delivered-leg
// settlement.
type Service interface {
	Create(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	List(ctx context.Context, input ListShipmentsInput) (*ShipmentList, error)
	// RegisterWithCourier hands the parcel to the courier and stamps the
	// returned tracking code on the shipment and its legs. Re-registering an
	// already registered shipment returns the existing code.
	RegisterWithCourier(ctx context.Context, id uuid.UUID) (string, error)
	// AdvanceByTracking moves the leg resolved from the tracking code to the
	// target status and re-derives the parent shipment.
	AdvanceByTracking(ctx context.Context, trackingCode string, target enums.ShipmentStatus, note *string) (*models.Shipment, error)
	// ResolveTracking returns the leg a courier callback for this code refers
	// to, per the active-leg-first policy.
	ResolveTracking(ctx context.Context, trackingCode string) (*models.ShipmentLeg, error)
	CancelShipment(ctx context.Context, id uuid.UUID, note *string) (*models.Shipment, error)
	AssignAgent(ctx context.Context, legID, agentID uuid.UUID) (*models.ShipmentLeg, error)
	// SyncFromCourier polls the courier and applies the mapped status when it
	// advances the active leg. Unmapped external codes are logged and leave
	// the shipment untouched.
	SyncFromCourier(ctx context.Context, id uuid.UUID) (enums.ShipmentStatus, error)
	QuoteFee(ctx context.Context, input QuoteFeeInput) (decimal.Decimal, error)
	Label(ctx context.Context, id uuid.UUID) ([]byte, error)
	Logs(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLog, error)
}

type service struct {
	repo          Repository
	tx            txRunner
	locks         *shipmentLocks
	relocator     InventoryRelocator
	ledger        LedgerRecorder
	promoter      OrderPromoter
	gateway       CourierGateway
	deliveryBonus decimal.Decimal
}

// NewService wires a shipments service with the provided dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	relocator InventoryRelocator,
	ledgerRecorder LedgerRecorder,
	promoter OrderPromoter,
	gateway CourierGateway,
	deliveryBonus decimal.Decimal,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if relocator == nil {
		return nil, fmt.Errorf("inventory relocator required")
	}
	if ledgerRecorder == nil {
		return nil, fmt.Errorf("ledger recorder required")
	}
	if promoter == nil {
		return nil, fmt.Errorf("order promoter required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("courier gateway required")
	}
	if deliveryBonus.IsNegative() {
		return nil, fmt.Errorf("delivery bonus must not be negative")
	}

	return &service{
		repo:          repo,
		tx:            tx,
		locks:         newShipmentLocks(),
		relocator:     relocator,
		ledger:        ledgerRecorder,
		promoter:      promoter,
		gateway:       gateway,
		deliveryBonus: deliveryBonus,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop id required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.PickupAddress == "" || input.DeliveryAddress == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup and delivery addresses required")
	}
	if input.CODAmount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cod amount must not be negative")
	}
	if input.ShippingFee.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping fee must not be negative")
	}
	if input.WeightGrams < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
	}

	if _, err := s.repo.FindShipmentByOrder(ctx, input.OrderID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already has a shipment").
			WithDetails(map[string]any{"order_id": input.OrderID.String()})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing shipment")
	}

	plans, err := PlanLegs(input.Route)
	if err != nil {
		return nil, err
	}

	shipment := &models.Shipment{
		ID:              uuid.New(),
		OrderID:         input.OrderID,
		ShopID:          input.ShopID,
		ProductID:       input.ProductID,
		Status:          enums.ShipmentStatusPending,
		PickupAddress:   input.PickupAddress,
		DeliveryAddress: input.DeliveryAddress,
		CODAmount:       input.CODAmount,
		ShippingFee:     input.ShippingFee,
		WeightGrams:     input.WeightGrams,
	}

	legs := make([]models.ShipmentLeg, 0, len(plans))
	for _, plan := range plans {
		legs = append(legs, models.ShipmentLeg{
			ID:              uuid.New(),
			ShipmentID:      shipment.ID,
			Sequence:        plan.Sequence,
			FromWarehouseID: plan.FromWarehouseID,
			ToWarehouseID:   plan.ToWarehouseID,
			Status:          enums.ShipmentStatusPending,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateShipment(ctx, shipment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment")
		}
		if err := repo.CreateLegs(ctx, legs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipment legs")
		}

		note := fmt.Sprintf("dispatched with %d legs", len(legs))
		return s.appendLog(ctx, repo, shipment.ID, nil, enums.ShipmentStatusPending, enums.ShipmentStatusPending, &note)
	})
	if err != nil {
		return nil, err
	}

	shipment.Legs = legs
	return shipment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	shipment, err := s.repo.FindShipment(ctx, id)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	return shipment, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	shipment, err := s.repo.FindShipmentByOrder(ctx, orderID)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	return shipment, nil
}

func (s *service) List(ctx context.Context, input ListShipmentsInput) (*ShipmentList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid shipment status %q", *input.Status))
	}

	query := listShipmentsParams{
		Status:      input.Status,
		AgentID:     input.AgentID,
		WarehouseID: input.WarehouseID,
		Search:      input.Search,
		Limit:       input.Params.Limit,
	}
	if input.Params.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListShipments(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipments")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return &ShipmentList{Items: rows, NextCursor: nextCursor}, nil
}

func (s *service) RegisterWithCourier(ctx context.Context, id uuid.UUID) (string, error) {
	if id == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}

	shipment, err := s.repo.FindShipment(ctx, id)
	if err != nil {
		return "", shipmentLookupError(err)
	}
	if shipment.TrackingCode != nil {
		return *shipment.TrackingCode, nil
	}
	if shipment.Status.IsTerminal() {
		return "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot register a finished shipment")
	}

	// The courier round trip runs outside the per-shipment lock so a slow
	// gateway never stalls leg transitions.
	code, err := s.gateway.Register(ctx, courier.RegisterRequest{
		OrderRef:        shipment.ID.String(),
		PickupAddress:   shipment.PickupAddress,
		DeliveryAddress: shipment.DeliveryAddress,
		WeightGrams:     shipment.WeightGrams,
		CODAmount:       shipment.CODAmount,
	})
	if err != nil {
		return "", err
	}

	release := s.locks.Lock(id)
	defer release()

	// Re-read under the lock. A concurrent registration wins and keeps its
	// code; a shipment finished while the courier call was in flight must
	// not get one stamped on.
	shipment, err = s.repo.FindShipment(ctx, id)
	if err != nil {
		return "", shipmentLookupError(err)
	}
	if shipment.TrackingCode != nil {
		return *shipment.TrackingCode, nil
	}
	if shipment.Status.IsTerminal() {
		return "", pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot register a finished shipment")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateShipment(ctx, shipment.ID, map[string]any{"tracking_code": code}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store tracking code")
		}
		for _, leg := range shipment.Legs {
			legCode := fmt.Sprintf("%s-%d", code, leg.Sequence)
			if err := repo.UpdateLeg(ctx, leg.ID, map[string]any{"tracking_code": legCode}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store leg tracking code")
			}
		}
		note := fmt.Sprintf("registered with courier as %s", code)
		return s.appendLog(ctx, repo, shipment.ID, nil, shipment.Status, shipment.Status, &note)
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *service) AdvanceByTracking(ctx context.Context, trackingCode string, target enums.ShipmentStatus, note *string) (*models.Shipment, error) {
	if trackingCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking code required")
	}
	if _, known := legTransitionSources[target]; !known {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported target status %q", target))
	}

	located, err := s.repo.FindShipmentByTrackingCode(ctx, trackingCode)
	if err != nil {
		return nil, shipmentLookupError(err)
	}

	release := s.locks.Lock(located.ID)
	defer release()

	// Re-read under the lock so a transition committed by a concurrent
	// callback is visible before the leg is chosen.
	shipment, err := s.repo.FindShipment(ctx, located.ID)
	if err != nil {
		return nil, shipmentLookupError(err)
	}

	leg, err := legForCode(shipment.Legs, trackingCode, target)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(leg.Status, target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed").
			WithDetails(map[string]any{
				"leg_sequence": leg.Sequence,
				"from":         leg.Status.String(),
				"to":           target.String(),
			})
	}

	fromStatus := leg.Status
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{"status": target}
		now := time.Now().UTC()
		switch target {
		case enums.ShipmentStatusPickingUp:
			updates["started_at"] = now
		case enums.ShipmentStatusDelivered, enums.ShipmentStatusCancelled, enums.ShipmentStatusReturned:
			updates["ended_at"] = now
		}
		if err := repo.UpdateLeg(ctx, leg.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update leg status")
		}

		if target == enums.ShipmentStatusDelivered {
			if err := s.relocator.Relocate(ctx, tx, moveForLeg(shipment, leg)); err != nil {
				return err
			}
		}

		legs, err := repo.FindLegsByShipment(ctx, shipment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload legs")
		}
		agg := DeriveAggregate(legs)

		shipmentUpdates := map[string]any{"status": agg.Status}
		if agg.FinalDelivery {
			shipmentUpdates["delivered_at"] = now
			if agg.AgentID != nil {
				shipmentUpdates["agent_id"] = *agg.AgentID
			}
		}
		if agg.Returned {
			shipmentUpdates["returned_at"] = now
		}
		if err := repo.UpdateShipment(ctx, shipment.ID, shipmentUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
		}

		if agg.FinalDelivery {
			if err := s.settleDelivery(ctx, tx, shipment, leg); err != nil {
				return err
			}
		}

		return s.appendLog(ctx, repo, shipment.ID, &leg.ID, fromStatus, target, note)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindShipment(ctx, shipment.ID)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	return updated, nil
}

func (s *service) ResolveTracking(ctx context.Context, trackingCode string) (*models.ShipmentLeg, error) {
	if trackingCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking code required")
	}
	shipment, err := s.repo.FindShipmentByTrackingCode(ctx, trackingCode)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	return legForCode(shipment.Legs, trackingCode, enums.ShipmentStatusInTransit)
}

func (s *service) CancelShipment(ctx context.Context, id uuid.UUID, note *string) (*models.Shipment, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}

	shipment, err := s.repo.FindShipment(ctx, id)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	if err := cancellable(shipment.Status); err != nil {
		return nil, err
	}

	// Void the courier order first so a courier failure never leaves the
	// local shipment cancelled while the parcel keeps moving. The round trip
	// runs outside the per-shipment lock so a slow gateway never stalls leg
	// transitions.
	if shipment.TrackingCode != nil {
		if err := s.gateway.Cancel(ctx, *shipment.TrackingCode); err != nil {
			return nil, err
		}
	}

	release := s.locks.Lock(id)
	defer release()

	// Re-read under the lock so a transition committed while the courier
	// call was in flight is visible before legs are cancelled.
	shipment, err = s.repo.FindShipment(ctx, id)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	if err := cancellable(shipment.Status); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := time.Now().UTC()
		for _, leg := range shipment.Legs {
			if leg.Status.IsTerminal() {
				continue
			}
			updates := map[string]any{"status": enums.ShipmentStatusCancelled, "ended_at": now}
			if err := repo.UpdateLeg(ctx, leg.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel leg")
			}
		}
		if err := repo.UpdateShipment(ctx, shipment.ID, map[string]any{"status": enums.ShipmentStatusCancelled}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel shipment")
		}
		return s.appendLog(ctx, repo, shipment.ID, nil, shipment.Status, enums.ShipmentStatusCancelled, note)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindShipment(ctx, shipment.ID)
	if err != nil {
		return nil, shipmentLookupError(err)
	}
	return updated, nil
}

func (s *service) AssignAgent(ctx context.Context, legID, agentID uuid.UUID) (*models.ShipmentLeg, error) {
	if legID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "leg id required")
	}
	if agentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}

	leg, err := s.repo.FindLeg(ctx, legID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment leg not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment leg")
	}
	if leg.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot assign agent to a finished leg")
	}

	if err := s.repo.UpdateLeg(ctx, leg.ID, map[string]any{"agent_id": agentID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign agent")
	}
	leg.AgentID = &agentID
	return leg, nil
}

func (s *service) SyncFromCourier(ctx context.Context, id uuid.UUID) (enums.ShipmentStatus, error) {
	shipment, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if shipment.TrackingCode == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "shipment is not registered with the courier")
	}

	external, err := s.gateway.FetchStatus(ctx, *shipment.TrackingCode)
	if err != nil {
		return "", err
	}

	mapped, known := courier.MapExternalStatus(external)
	if !known {
		// Record the anomaly without touching the shipment; the table of
		// external codes is the only thing that should change.
		note := fmt.Sprintf("unmapped courier status %q", external)
		if err := s.appendLog(ctx, s.repo, shipment.ID, nil, shipment.Status, shipment.Status, &note); err != nil {
			return "", err
		}
		return mapped, nil
	}
	if mapped == shipment.Status || mapped == enums.ShipmentStatusPending {
		return mapped, nil
	}

	if _, err := s.AdvanceByTracking(ctx, *shipment.TrackingCode, mapped, nil); err != nil {
		// The courier can report a state we already passed through; that is
		// not an error for the poller.
		if pkgerrors.HasCode(err, pkgerrors.CodeInvalidTransition) || pkgerrors.HasCode(err, pkgerrors.CodeAlreadyCompleted) {
			return shipment.Status, nil
		}
		return "", err
	}
	return mapped, nil
}

func (s *service) QuoteFee(ctx context.Context, input QuoteFeeInput) (decimal.Decimal, error) {
	if input.PickupAddress == "" || input.DeliveryAddress == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "pickup and delivery addresses required")
	}
	if input.WeightGrams <= 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	return s.gateway.QuoteFee(ctx, courier.QuoteRequest{
		PickupAddress:   input.PickupAddress,
		DeliveryAddress: input.DeliveryAddress,
		WeightGrams:     input.WeightGrams,
	})
}

func (s *service) Label(ctx context.Context, id uuid.UUID) ([]byte, error) {
	shipment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if shipment.TrackingCode == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment is not registered with the courier")
	}
	return s.gateway.Label(ctx, *shipment.TrackingCode)
}

func (s *service) Logs(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentLog, error) {
	if shipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	logs, err := s.repo.ListLogs(ctx, shipmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shipment logs")
	}
	return logs, nil
}

// settleDelivery fires the one-time financial and order side effects of the
// final leg completing. The unique index on (shipment_id, type) backs the
// exists checks, so replays and races settle exactly once.
func (s *service) settleDelivery(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, leg *models.ShipmentLeg) error {
	if err := s.promoter.PromoteDelivered(ctx, tx, shipment.OrderID); err != nil {
		return err
	}

	// A zero-COD parcel has nothing to collect and earns no bonus.
	if !shipment.CODAmount.IsPositive() {
		return nil
	}

	agentID := leg.AgentID
	if agentID == nil {
		agentID = shipment.AgentID
	}
	if agentID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "delivering agent required to settle cash on delivery")
	}

	hasCollect, err := s.ledger.HasShipmentTransaction(ctx, tx, shipment.ID, enums.AgentTransactionTypeCollectCOD)
	if err != nil {
		return err
	}
	if !hasCollect {
		_, err := s.ledger.RecordInTx(ctx, tx, ledger.RecordTransactionInput{
			AgentID:    *agentID,
			ShipmentID: &shipment.ID,
			Type:       enums.AgentTransactionTypeCollectCOD,
			Amount:     shipment.CODAmount,
		})
		if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateTransaction) {
			return err
		}
	}

	if s.deliveryBonus.IsPositive() {
		hasBonus, err := s.ledger.HasShipmentTransaction(ctx, tx, shipment.ID, enums.AgentTransactionTypeBonus)
		if err != nil {
			return err
		}
		if !hasBonus {
			_, err := s.ledger.RecordInTx(ctx, tx, ledger.RecordTransactionInput{
				AgentID:    *agentID,
				ShipmentID: &shipment.ID,
				Type:       enums.AgentTransactionTypeBonus,
				Amount:     s.deliveryBonus,
			})
			if err != nil && !pkgerrors.HasCode(err, pkgerrors.CodeDuplicateTransaction) {
				return err
			}
		}
	}

	return nil
}

func (s *service) appendLog(ctx context.Context, repo Repository, shipmentID uuid.UUID, legID *uuid.UUID, from, to enums.ShipmentStatus, note *string) error {
	entry := &models.ShipmentLog{
		ID:         uuid.New(),
		ShipmentID: shipmentID,
		LegID:      legID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if err := repo.CreateLog(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append shipment log")
	}
	return nil
}

// legForCode resolves the leg a callback refers to. A per-leg code stamped at
// registration pins the exact hop; the shipment-level code falls back to the
// selection policy.
func legForCode(legs []models.ShipmentLeg, trackingCode string, target enums.ShipmentStatus) (*models.ShipmentLeg, error) {
	for i := range legs {
		if legs[i].TrackingCode != nil && *legs[i].TrackingCode == trackingCode {
			return &legs[i], nil
		}
	}
	return selectLeg(legs, target)
}

// selectLeg picks the leg a tracking-code operation applies to. Return flows
// act on the last hop; everything else prefers a leg already moving, then the
// earliest hop still pending.
func selectLeg(legs []models.ShipmentLeg, target enums.ShipmentStatus) (*models.ShipmentLeg, error) {
	if len(legs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment has no legs")
	}

	if target == enums.ShipmentStatusReturning || target == enums.ShipmentStatusReturned {
		last := legs[0]
		for _, leg := range legs[1:] {
			if leg.Sequence > last.Sequence {
				last = leg
			}
		}
		return &last, nil
	}

	for i := range legs {
		if legs[i].Status == enums.ShipmentStatusPickingUp || legs[i].Status == enums.ShipmentStatusInTransit {
			return &legs[i], nil
		}
	}
	for i := range legs {
		if !legs[i].Status.IsTerminal() && legs[i].Status != enums.ShipmentStatusReturning {
			return &legs[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "all delivery legs already finished")
}

func cancellable(status enums.ShipmentStatus) error {
	if status.IsTerminal() || status == enums.ShipmentStatusReturning {
		return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed").
			WithDetails(map[string]any{
				"from": status.String(),
				"to":   enums.ShipmentStatusCancelled.String(),
			})
	}
	return nil
}

func transitionAllowed(from, to enums.ShipmentStatus) bool {
	for _, source := range legTransitionSources[to] {
		if source == from {
			return true
		}
	}
	return false
}

func shipmentLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
}
