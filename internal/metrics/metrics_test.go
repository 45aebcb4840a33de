package metrics

import "testing"

func TestCountersSafeBeforeInit(t *testing.T) {
	// None of these may panic before Init has run.
	IncrementTradeProcessed("AAPL")
	IncrementInsight("AAPL")
	IncrementReconnect()
	IncrementDropped("decode_error")
	SetConnectionState(1)
}

func TestInitWithoutEndpoint(t *testing.T) {
	Init("")

	IncrementTradeProcessed("AAPL")
	IncrementInsight("AAPL")
	IncrementReconnect()
	IncrementDropped("unknown_type")
	SetConnectionState(2)
}
