package models

// -----------------------------------------------------------------------------
// Outbound protocol envelope
// -----------------------------------------------------------------------------

const (
	MessageInitial = "INITIAL"
	MessageState   = "STATE"
	MessageUpdate  = "UPDATE"
	MessageError   = "ERROR"
)

// MStreamMessage is the only structure written to a streaming connection.
// Ticks is set for INITIAL only (an empty, non-nil slice still serializes as []),
// Tick for UPDATE only.
type MStreamMessage struct {
	Type            string        `json:"type"`
	Phase           MTradingPhase `json:"phase"`
	Message         string        `json:"message,omitempty"`
	StockCode       string        `json:"stockCode"`
	TradingDate     *MDate        `json:"tradingDate"`
	TradingFinished bool          `json:"tradingFinished"`
	Ticks           []MTick       `json:"ticks,omitzero"`
	Tick            *MTick        `json:"tick,omitzero"`
}

// -----------------------------------------------------------------------------
// Session listing (REST / gRPC control)
// -----------------------------------------------------------------------------

type MSessionInfo struct {
	ConnID       string        `json:"connId"`
	StockCode    string        `json:"stockCode"`
	TradingDate  string        `json:"tradingDate"`
	Phase        MTradingPhase `json:"phase"`
	LastTickTime string        `json:"lastTickTime,omitempty"`
	StartedAt    int64         `json:"startedAt"`
}
