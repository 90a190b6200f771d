package spreadengine

import (
	"sort"

	"github.com/shopspring/decimal"

	"crossspread/internal/book"
	"crossspread/internal/slippage"
)

// Scanner finds the best cross-venue spread opportunity for a symbol.
type Scanner struct {
	Calc *slippage.Calculator
	Size decimal.Decimal
}

// NewScanner returns a Scanner that sizes every candidate slippage
// calculation at size.
func NewScanner(calc *slippage.Calculator, size decimal.Decimal) *Scanner {
	return &Scanner{Calc: calc, Size: size}
}

// Scan checks every unordered venue pair present for symbol in store,
// in both directions, and returns the single best opportunity by
// spread_bps. Unlike the pairwise scan this replaces — which special-
// cased "long A / short B" to win ties against "long B / short A" and
// left the reverse direction's full candidate (slippage, books) computed
// only when it beat the running best, silently keeping a stale winner
// on a tie — this treats every (pair, direction) combination as an
// independent candidate evaluated against the same running best, and
// breaks ties by evaluation order (the first candidate to reach a given
// spread_bps wins; later ties do not replace it). Venue pairs are walked
// in a fixed, sorted order so that tie-break is deterministic across
// runs and not an artifact of map iteration.
func (sc *Scanner) Scan(store *book.Store, symbol string) (Opportunity, bool) {
	books := store.GetAllForSymbol(symbol)
	if len(books) < 2 {
		return Opportunity{}, false
	}

	venues := make([]string, 0, len(books))
	for v := range books {
		venues = append(venues, v)
	}
	sort.Strings(venues)

	var best Opportunity
	haveBest := false
	bestBps := decimal.Zero

	consider := func(longVenue, shortVenue string) {
		longBook := books[longVenue]
		shortBook := books[shortVenue]

		longAsk, okAsk := longBook.BestAsk()
		shortBid, okBid := shortBook.BestBid()
		if !okAsk || !okBid {
			return
		}
		if longAsk.Price.IsZero() {
			return
		}

		spreadBps := shortBid.Price.Sub(longAsk.Price).Div(longAsk.Price).Mul(decimal.NewFromInt(10000))

		if haveBest && spreadBps.LessThanOrEqual(bestBps) {
			return
		}

		longSlip := sc.Calc.Calculate(longBook, book.Ask, sc.Size, true, true)
		shortSlip := sc.Calc.Calculate(shortBook, book.Bid, sc.Size, true, true)

		best = Opportunity{
			Symbol:        symbol,
			LongVenue:     longVenue,
			ShortVenue:    shortVenue,
			LongBook:      longBook,
			ShortBook:     shortBook,
			SpreadBps:     spreadBps,
			LongSlippage:  longSlip,
			ShortSlippage: shortSlip,
			CanExecute:    !longSlip.InsufficientLiquidity && !shortSlip.InsufficientLiquidity,
		}
		bestBps = spreadBps
		haveBest = true
	}

	for i, a := range venues {
		for _, b := range venues[i+1:] {
			consider(a, b)
			consider(b, a)
		}
	}

	return best, haveBest
}
