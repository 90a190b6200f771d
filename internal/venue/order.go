// Package venue simulates a single exchange's matching engine: order
// placement, depth-walking fills against the current book, and partial
// fill bookkeeping. It is the backtest's stand-in for a live Exchange
// implementation.
package venue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

type OrderType int

const (
	Limit OrderType = iota
	Market
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusOpen            OrderStatus = "open"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

// validTransitions mirrors the lifecycle a live order goes through on an
// exchange: open orders accumulate fills until fully filled, or get
// cancelled before that happens. Terminal states transition nowhere.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:         {StatusOpen, StatusCancelled, StatusRejected},
	StatusOpen:            {StatusPartiallyFilled, StatusFilled, StatusCancelled},
	StatusPartiallyFilled: {StatusFilled, StatusCancelled},
	StatusFilled:          {},
	StatusCancelled:       {},
	StatusRejected:        {},
}

// CanTransition reports whether an order may move from `from` to `to`.
func CanTransition(from, to OrderStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Fill is one partial (or full) execution of an Order.
type Fill struct {
	ID        string
	OrderID   string
	Timestamp time.Time
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Fee       decimal.Decimal
	IsMaker   bool
}

// Value returns price*quantity for the fill.
func (f Fill) Value() decimal.Decimal {
	return f.Price.Mul(f.Quantity)
}

// Order is a simulated order resting on one venue.
type Order struct {
	ID        string
	Venue     string
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Price     decimal.Decimal // zero/unused for market orders
	Quantity  decimal.Decimal
	Filled    decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Fills     []Fill
}

// NewOrder constructs an order, generating a UUID id. A Limit order
// without a positive price can never rest at a price level and is
// constructed StatusRejected instead of StatusOpen; every other order
// starts StatusOpen.
func NewOrder(venue, symbol string, side OrderSide, typ OrderType, quantity, price decimal.Decimal, at time.Time) Order {
	status := StatusOpen
	if typ == Limit && price.LessThanOrEqual(decimal.Zero) {
		status = StatusRejected
	}
	return Order{
		ID:        uuid.NewString(),
		Venue:     venue,
		Symbol:    symbol,
		Side:      side,
		Type:      typ,
		Price:     price,
		Quantity:  quantity,
		Status:    status,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// AverageFillPrice is the volume-weighted average price across all
// fills, or (zero, false) if the order has no fills yet.
func (o Order) AverageFillPrice() (decimal.Decimal, bool) {
	if len(o.Fills) == 0 {
		return decimal.Zero, false
	}
	totalValue := decimal.Zero
	totalQty := decimal.Zero
	for _, f := range o.Fills {
		totalValue = totalValue.Add(f.Value())
		totalQty = totalQty.Add(f.Quantity)
	}
	if totalQty.IsZero() {
		return decimal.Zero, false
	}
	return totalValue.Div(totalQty), true
}

// TotalFees sums the fee paid across all fills.
func (o Order) TotalFees() decimal.Decimal {
	total := decimal.Zero
	for _, f := range o.Fills {
		total = total.Add(f.Fee)
	}
	return total
}

// addFill appends a fill and advances the order's status per
// validTransitions.
func (o *Order) addFill(f Fill) {
	o.Fills = append(o.Fills, f)
	o.Filled = o.Filled.Add(f.Quantity)
	o.UpdatedAt = f.Timestamp

	next := StatusPartiallyFilled
	if o.Filled.GreaterThanOrEqual(o.Quantity) {
		next = StatusFilled
	}
	if CanTransition(o.Status, next) {
		o.Status = next
	}
}
