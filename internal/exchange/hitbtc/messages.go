package hitbtc

// Wire shapes for the venue's streaming channels and REST endpoints.
// Envelope structs act as tagged unions: exactly one pointer field is
// non-nil for a recognized message, anything else is the unrecognized
// variant and gets logged and dropped by the session.

// --- Market data channel ---

type bookEntry struct {
	Price     string  `json:"price"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp"`
}

type wsTrade struct {
	Price     string  `json:"price"`
	Size      float64 `json:"size"`
	Timestamp int64   `json:"timestamp"`
}

type marketDataRefresh struct {
	SeqNo          int64       `json:"seqNo"`
	SnapshotSeqNo  int64       `json:"snapshotSeqNo"`
	Symbol         string      `json:"symbol"`
	ExchangeStatus string      `json:"exchangeStatus"`
	Timestamp      int64       `json:"timestamp"`
	Asks           []bookEntry `json:"ask"`
	Bids           []bookEntry `json:"bid"`
	Trades         []wsTrade   `json:"trade"`
}

type marketEnvelope struct {
	Snapshot    *marketDataRefresh `json:"MarketDataSnapshotFullRefresh"`
	Incremental *marketDataRefresh `json:"MarketDataIncrementalRefresh"`
}

// tradeChannelEvent is the independent trade-print feed's message. The venue
// gives no side; it is inferred against the book.
type tradeChannelEvent struct {
	Price  float64 `json:"price"`
	Amount float64 `json:"amount"`
}

// --- Order entry channel, inbound ---

type executionReport struct {
	OrderID           string  `json:"orderId"`
	ClientOrderID     string  `json:"clientOrderId"`
	ExecReportType    string  `json:"execReportType"`
	OrderStatus       string  `json:"orderStatus"`
	OrderRejectReason string  `json:"orderRejectReason"`
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	Timestamp         int64   `json:"timestamp"`
	Price             string  `json:"price"`
	Quantity          float64 `json:"quantity"`
	Type              string  `json:"type"`
	TimeInForce       string  `json:"timeInForce"`
	TradeID           int64   `json:"tradeId"`
	LastQuantity      float64 `json:"lastQuantity"`
	LastPrice         string  `json:"lastPrice"`
	LeavesQuantity    float64 `json:"leavesQuantity"`
	CumQuantity       float64 `json:"cumQuantity"`
	AveragePrice      string  `json:"averagePrice"`
}

type cancelReject struct {
	ClientOrderID              string `json:"clientOrderId"`
	CancelRequestClientOrderID string `json:"cancelRequestClientOrderId"`
	RejectReasonCode           string `json:"rejectReasonCode"`
	RejectReasonText           string `json:"rejectReasonText"`
	Timestamp                  int64  `json:"timestamp"`
}

type tradingEnvelope struct {
	ExecutionReport *executionReport `json:"ExecutionReport"`
	CancelReject    *cancelReject    `json:"CancelReject"`
}

// --- Order entry channel, outbound payloads ---

type loginEnvelope struct {
	Login struct{} `json:"Login"`
}

type newOrderPayload struct {
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Quantity      int64  `json:"quantity"`
	Type          string `json:"type"`
	Price         string `json:"price"`
	TimeInForce   string `json:"timeInForce"`
}

type newOrderEnvelope struct {
	NewOrder newOrderPayload `json:"NewOrder"`
}

type orderCancelPayload struct {
	ClientOrderID              string `json:"clientOrderId"`
	CancelRequestClientOrderID string `json:"cancelRequestClientOrderId"`
	Symbol                     string `json:"symbol"`
	Side                       string `json:"side"`
}

type orderCancelEnvelope struct {
	OrderCancel orderCancelPayload `json:"OrderCancel"`
}

// --- REST ---

type restOrderBook struct {
	Asks [][]string `json:"asks"`
	Bids [][]string `json:"bids"`
}

type restTrade struct {
	Date   int64  `json:"date"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
}

type restTradesResponse struct {
	Trades []restTrade `json:"trades"`
}

type balanceRecord struct {
	CurrencyCode string  `json:"currency_code"`
	Cash         float64 `json:"cash"`
	Reserved     float64 `json:"reserved"`
}

type balanceResponse struct {
	Balances []balanceRecord `json:"balance"`
}

type symbolInfo struct {
	Symbol               string `json:"symbol"`
	Step                 string `json:"step"`
	Lot                  string `json:"lot"`
	Currency             string `json:"currency"`
	Commodity            string `json:"commodity"`
	TakeLiquidityRate    string `json:"takeLiquidityRate"`
	ProvideLiquidityRate string `json:"provideLiquidityRate"`
}

type symbolsResponse struct {
	Symbols []symbolInfo `json:"symbols"`
}
