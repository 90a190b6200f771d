package venue

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crossspread/internal/book"
	"crossspread/internal/slippage"
)

// Venue simulates a single exchange: it holds resting orders and matches
// them against whatever book it was last given via UpdateOrderbook.
type Venue struct {
	Name string
	Fees slippage.FeeSchedule

	orders      map[string]*Order
	openOrders  map[string]*Order
	currentBook *book.Snapshot
}

// New returns a Venue using fees for all fill fee calculations.
func New(name string, fees slippage.FeeSchedule) *Venue {
	return &Venue{
		Name:       name,
		Fees:       fees,
		orders:     make(map[string]*Order),
		openOrders: make(map[string]*Order),
	}
}

// UpdateOrderbook records the venue's latest book and tries to fill any
// resting order against it. Snapshots for a different venue are ignored:
// callers are expected to route each book.Snapshot to the Venue whose
// Name matches s.Venue.
func (v *Venue) UpdateOrderbook(s book.Snapshot) {
	if s.Venue != v.Name {
		return
	}
	v.currentBook = &s

	for id, order := range v.openOrders {
		if order.Symbol != s.Symbol {
			continue
		}
		v.tryFill(order, s)
		if order.Status == StatusFilled || order.Status == StatusCancelled {
			delete(v.openOrders, id)
		}
	}
}

// PlaceOrder opens a new order and immediately attempts to fill it
// against the venue's current book, if one has been seen for symbol. A
// Limit order submitted without a positive price is rejected outright
// and never reaches the open book.
func (v *Venue) PlaceOrder(symbol string, side OrderSide, typ OrderType, quantity, price decimal.Decimal, at time.Time) Order {
	order := NewOrder(v.Name, symbol, side, typ, quantity, price, at)
	ptr := &order
	v.orders[order.ID] = ptr

	if order.Status == StatusRejected {
		return *ptr
	}

	v.openOrders[order.ID] = ptr

	if v.currentBook != nil && v.currentBook.Symbol == symbol {
		v.tryFill(ptr, *v.currentBook)
		if ptr.Status == StatusFilled || ptr.Status == StatusCancelled {
			delete(v.openOrders, ptr.ID)
		}
	}

	return *ptr
}

// CancelOrder marks an open order cancelled. Reports false if the order
// is unknown or already terminal.
func (v *Venue) CancelOrder(orderID string, at time.Time) bool {
	order, ok := v.orders[orderID]
	if !ok {
		return false
	}
	if !CanTransition(order.Status, StatusCancelled) {
		return false
	}
	order.Status = StatusCancelled
	order.UpdatedAt = at
	delete(v.openOrders, orderID)
	return true
}

// Order looks up a previously placed order by id.
func (v *Venue) Order(orderID string) (Order, bool) {
	o, ok := v.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// tryFill walks s's relevant side and applies whatever fills order's
// remaining quantity against current depth, grounded on the original
// engine's level-by-level matching loop: a limit order only consumes
// levels at or better than its price, a market order consumes whatever
// is there.
func (v *Venue) tryFill(order *Order, s book.Snapshot) {
	if order.Status == StatusFilled || order.Status == StatusCancelled {
		return
	}

	remaining := order.Remaining()
	if remaining.LessThanOrEqual(decimal.Zero) {
		return
	}

	levels := s.Asks
	if order.Side == Sell {
		levels = s.Bids
	}
	if len(levels) == 0 {
		return
	}

	bestBid, hasBid := s.BestBid()
	bestAsk, hasAsk := s.BestAsk()

	var fills []Fill
	for _, level := range levels {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		if order.Type == Limit {
			if order.Side == Buy && level.Price.GreaterThan(order.Price) {
				break
			}
			if order.Side == Sell && level.Price.LessThan(order.Price) {
				break
			}
		}

		fillQty := decimal.Min(remaining, level.Quantity)

		isMaker := false
		if order.Type == Limit && hasBid && hasAsk {
			if order.Side == Buy && order.Price.LessThan(bestAsk.Price) {
				isMaker = true
			}
			if order.Side == Sell && order.Price.GreaterThan(bestBid.Price) {
				isMaker = true
			}
		}

		feeRate := v.Fees.Rate(isMaker)
		fee := fillQty.Mul(level.Price).Mul(feeRate)

		fills = append(fills, Fill{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			Timestamp: s.Timestamp,
			Price:     level.Price,
			Quantity:  fillQty,
			Fee:       fee,
			IsMaker:   isMaker,
		})

		remaining = remaining.Sub(fillQty)
	}

	for _, f := range fills {
		order.addFill(f)
	}
}

// Reset clears all order state, used between backtest runs that share a
// Venue instance.
func (v *Venue) Reset() {
	v.orders = make(map[string]*Order)
	v.openOrders = make(map[string]*Order)
	v.currentBook = nil
}
