package book

import "testing"

func TestStoreUpdateAndGet(t *testing.T) {
	st := NewStore()

	st.Update(Snapshot{Venue: "binance", Symbol: "BTC-USDT-PERP", Sequence: 1})
	st.Update(Snapshot{Venue: "bybit", Symbol: "BTC-USDT-PERP", Sequence: 1})

	if _, ok := st.Get("binance", "BTC-USDT-PERP"); !ok {
		t.Fatal("expected binance snapshot")
	}
	if _, ok := st.Get("okx", "BTC-USDT-PERP"); ok {
		t.Fatal("did not expect okx snapshot")
	}

	all := st.GetAllForSymbol("BTC-USDT-PERP")
	if len(all) != 2 {
		t.Fatalf("got %d venues, want 2", len(all))
	}
}

func TestStoreUpdateOverwritesLatest(t *testing.T) {
	st := NewStore()
	st.Update(Snapshot{Venue: "binance", Symbol: "BTC-USDT-PERP", Sequence: 1})
	st.Update(Snapshot{Venue: "binance", Symbol: "BTC-USDT-PERP", Sequence: 2})

	s, ok := st.Get("binance", "BTC-USDT-PERP")
	if !ok || s.Sequence != 2 {
		t.Fatalf("expected latest sequence 2, got %+v", s)
	}
}
