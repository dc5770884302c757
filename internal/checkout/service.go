package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/identity"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

const (
	defaultOrderNumberAttempts = 5
	orderSavepoint             = "order_number"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Step names a point between checkout writes where a FaultInjector runs.
type Step string

const (
	StepOrderPersisted    Step = "order_persisted"
	StepItemsPersisted    Step = "items_persisted"
	StepInventoryAdjusted Step = "inventory_adjusted"
	StepPaymentRecorded   Step = "payment_recorded"
	StepCartCleared       Step = "cart_cleared"
	StepEventQueued       Step = "event_queued"
)

// FaultInjector may abort checkout at a step by returning an error.
type FaultInjector func(ctx context.Context, step Step) error

// Service turns a cart into an order in one transaction.
type Service interface {
	Execute(ctx context.Context, input Input) (*orders.OrderDTO, error)
}

// Input is everything checkout needs beyond the cart itself.
type Input struct {
	StoreID         uuid.UUID
	Owner           identity.Identity
	ShippingAddress types.Address
	// BillingAddress defaults to the shipping address.
	BillingAddress *types.Address
	PaymentMethod  enums.PaymentMethod
	Notes          *string
}

// Option configures the checkout service.
type Option func(*service)

func WithFaultInjector(fn FaultInjector) Option {
	return func(s *service) { s.fault = fn }
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *service) { s.metrics = m }
}

func WithLogger(logg *logger.Logger) Option {
	return func(s *service) { s.logg = logg }
}

func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func WithOrderNumbers(fn OrderNumberFunc) Option {
	return func(s *service) { s.numbers = fn }
}

func WithOrderNumberAttempts(n int) Option {
	return func(s *service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

type service struct {
	tx       txRunner
	carts    cart.CartRepository
	products *product.Repository
	orders   *orders.Repository
	pricing  *pricing.Engine
	outbox   outboxPublisher

	fault    FaultInjector
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
	numbers  OrderNumberFunc
	attempts int
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	carts cart.CartRepository,
	products *product.Repository,
	orderRepo *orders.Repository,
	engine *pricing.Engine,
	publisher outboxPublisher,
	opts ...Option,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if engine == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	s := &service{
		tx:       tx,
		carts:    carts,
		products: products,
		orders:   orderRepo,
		pricing:  engine,
		outbox:   publisher,
		now:      time.Now,
		numbers:  NewOrderNumber,
		attempts: defaultOrderNumberAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*orders.OrderDTO, error) {
	started := s.now()
	result, err := s.execute(ctx, input)
	s.metrics.Observe(outcomeOf(err), s.now().Sub(started))
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     result.ID.String(),
			"order_number": result.OrderNumber,
			"total_cents":  result.TotalCents,
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return result, nil
}

func (s *service) execute(ctx context.Context, input Input) (*orders.OrderDTO, error) {
	if err := input.Owner.Validate(); err != nil {
		return nil, err
	}
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = enums.PaymentMethodCard
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	shipping := input.ShippingAddress.Normalize()
	if shipping.Line1 == "" || shipping.City == "" || shipping.PostalCode == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}
	billing := shipping
	if input.BillingAddress != nil {
		billing = input.BillingAddress.Normalize()
	}

	var result *orders.OrderDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		carts := s.carts.WithTx(tx)
		productRepo := s.products.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		record, err := carts.FindByOwnerForUpdate(ctx, input.StoreID, input.Owner.OwnerKey())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoCart
			}
			return err
		}
		lines, err := carts.ListLines(ctx, record.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		locked, err := productRepo.LockForCheckout(ctx, input.StoreID, productIDs(lines))
		if err != nil {
			return err
		}
		stock, err := validateLines(lines, locked)
		if err != nil {
			return err
		}

		priced := make([]pricing.Line, 0, len(lines))
		for _, line := range lines {
			priced = append(priced, pricing.Line{
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
			})
		}
		totals := s.pricing.Price(priced)
		if totals.Clamped && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cart_id", record.ID.String()), "order total clamped to zero")
		}

		userID, session := input.Owner.Columns()
		order := &models.Order{
			StoreID:         input.StoreID,
			OwnerKey:        input.Owner.OwnerKey(),
			UserID:          userID,
			SessionToken:    session,
			Status:          enums.OrderStatusPending,
			SubtotalCents:   totals.SubtotalCents,
			TaxCents:        totals.TaxCents,
			ShippingCents:   totals.ShippingCents,
			DiscountCents:   totals.DiscountCents,
			TotalCents:      totals.TotalCents,
			Currency:        totals.Currency,
			ShippingAddress: shipping,
			BillingAddress:  billing,
			Notes:           input.Notes,
		}
		if err := s.createOrder(ctx, tx, orderRepo, order); err != nil {
			return err
		}
		if err := s.inject(ctx, StepOrderPersisted); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for i, line := range lines {
			p := stock.products[line.ProductID]
			items = append(items, models.OrderItem{
				OrderID:        order.ID,
				ProductID:      line.ProductID,
				VariantID:      line.VariantID,
				ProductName:    p.Name,
				ProductSKU:     p.SKU,
				Quantity:       line.Quantity,
				UnitPriceCents: priced[i].UnitPriceCents,
				TotalCents:     priced[i].Total(),
			})
		}
		if err := orderRepo.CreateItems(ctx, items); err != nil {
			return err
		}
		if err := s.inject(ctx, StepItemsPersisted); err != nil {
			return err
		}

		for _, id := range stock.order {
			p := stock.products[id]
			if err := inventory.Decrement(ctx, tx, id, inventory.StockOf(p), stock.requested[id]); err != nil {
				return err
			}
		}
		if err := s.inject(ctx, StepInventoryAdjusted); err != nil {
			return err
		}

		payment := &models.PaymentTransaction{
			OrderID:       order.ID,
			PaymentMethod: input.PaymentMethod,
			AmountCents:   order.TotalCents,
			Currency:      order.Currency,
			Status:        enums.PaymentStatusPending,
		}
		if err := orderRepo.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := s.inject(ctx, StepPaymentRecorded); err != nil {
			return err
		}

		cleared, err := carts.Clear(ctx, record.ID)
		if err != nil {
			return err
		}
		if cleared != int64(len(lines)) {
			return ErrCartChanged
		}
		if err := s.inject(ctx, StepCartCleared); err != nil {
			return err
		}

		if err := s.emitOrderCreated(ctx, tx, order, items, userID); err != nil {
			return err
		}
		if err := s.inject(ctx, StepEventQueued); err != nil {
			return err
		}

		order.Items = items
		order.Payments = []models.PaymentTransaction{*payment}
		result = orders.FromModel(order)
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

// createOrder inserts the order, regenerating the order number inside a
// savepoint when it collides with an existing one.
func (s *service) createOrder(ctx context.Context, tx *gorm.DB, repo *orders.Repository, order *models.Order) error {
	for attempt := 1; ; attempt++ {
		order.OrderNumber = s.numbers(s.now())
		if err := tx.SavePoint(orderSavepoint).Error; err != nil {
			return err
		}
		err := repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err, "ux_orders_order_number", "orders.order_number") {
			return err
		}
		if attempt >= s.attempts {
			return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "could not allocate a unique order number")
		}
		if rbErr := tx.RollbackTo(orderSavepoint).Error; rbErr != nil {
			return rbErr
		}
	}
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, items []models.OrderItem, userID *uuid.UUID) error {
	payload := payloads.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		StoreID:     order.StoreID,
		OwnerKey:    order.OwnerKey,
		TotalCents:  order.TotalCents,
		Currency:    order.Currency,
		Items:       make([]payloads.OrderCreatedItem, 0, len(items)),
	}
	for _, item := range items {
		payload.Items = append(payload.Items, payloads.OrderCreatedItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor: &outbox.ActorRef{
			OwnerKey: order.OwnerKey,
			UserID:   userID,
			StoreID:  order.StoreID,
		},
		Data:    payload,
		Version: 1,
	})
}

func (s *service) inject(ctx context.Context, step Step) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(ctx, step)
}

type lockedStock struct {
	products  map[uuid.UUID]models.Product
	requested map[uuid.UUID]int
	order     []uuid.UUID
}

// validateLines runs the inventory guard over the locked rows. Lines that
// share a product are checked against their combined quantity. The first
// failing line aborts.
func validateLines(lines []models.CartLine, locked []models.Product) (lockedStock, error) {
	out := lockedStock{
		products:  make(map[uuid.UUID]models.Product, len(locked)),
		requested: make(map[uuid.UUID]int, len(locked)),
		order:     make([]uuid.UUID, 0, len(locked)),
	}
	for _, p := range locked {
		out.products[p.ID] = p
		out.order = append(out.order, p.ID)
	}
	for _, line := range lines {
		p, ok := out.products[line.ProductID]
		if !ok || !p.IsActive {
			name := line.ProductID.String()
			if ok {
				name = p.Name
			}
			return lockedStock{}, unavailableError(name)
		}
		out.requested[line.ProductID] += line.Quantity
		if err := inventory.Require(inventory.StockOf(p), out.requested[line.ProductID]); err != nil {
			return lockedStock{}, err
		}
	}
	return out, nil
}

func productIDs(lines []models.CartLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}

func classify(err error) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "checkout failed")
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeSuccess
	}
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeInsufficientInventory:
		return metrics.OutcomeInsufficient
	case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized, pkgerrors.CodeNotFound:
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
