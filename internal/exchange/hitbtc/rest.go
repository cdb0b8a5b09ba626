package hitbtc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/souravmenon1999/hitbtc-gateway/internal/logging"
	"github.com/souravmenon1999/hitbtc-gateway/internal/types"
)

const (
	symbolsPath        = "/api/1/public/symbols"
	tradingBalancePath = "/api/1/trading/balance"
)

// RestClient issues the venue's REST calls: public symbol metadata, book
// snapshot and trade backfill, plus the signed balance request.
type RestClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *RequestSigner
	logger     zerolog.Logger
}

func NewRestClient(baseURL string, signer *RequestSigner) *RestClient {
	return &RestClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		signer:     signer,
		logger:     logging.Component("rest"),
	}
}

func (c *RestClient) do(ctx context.Context, uri string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+uri, nil)
	if err != nil {
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "failed to build REST request",
			Wrapped: err,
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "REST request failed",
			Wrapped: err,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: "failed to read REST response",
			Wrapped: err,
		}
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Str("uri", uri).
			Str("body", string(body)).Msg("REST call returned non-OK status")
		return types.TradingError{
			Code:    types.ErrConnectionFailed,
			Message: fmt.Sprintf("REST call returned status %d", resp.StatusCode),
		}
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error().Err(err).Str("uri", uri).Str("body", string(body)).
			Msg("failed to parse REST response")
		return types.TradingError{
			Code:    types.ErrParseFailed,
			Message: "failed to parse REST response",
			Wrapped: err,
		}
	}
	return nil
}

func (c *RestClient) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, path, nil, out)
}

func (c *RestClient) getSigned(ctx context.Context, path string, params url.Values, out interface{}) error {
	signed := c.signer.SignRest(path, params)
	headers := map[string]string{"X-Signature": signed.Signature}
	return c.do(ctx, signed.URI, headers, out)
}

// Symbols fetches the venue's symbol table; consumed once at startup.
func (c *RestClient) Symbols(ctx context.Context) ([]symbolInfo, error) {
	var resp symbolsResponse
	if err := c.get(ctx, symbolsPath, &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// OrderBook fetches the initial book snapshot for a symbol.
func (c *RestClient) OrderBook(ctx context.Context, symbol string) (*restOrderBook, error) {
	var resp restOrderBook
	path := fmt.Sprintf("/api/1/public/%s/orderbook", symbol)
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecentTrades fetches the historical trade backfill for a symbol.
func (c *RestClient) RecentTrades(ctx context.Context, symbol string, max int) ([]restTrade, error) {
	var resp restTradesResponse
	path := fmt.Sprintf("/api/1/public/%s/trades/recent?max_results=%s&format_item=object",
		symbol, strconv.Itoa(max))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Trades, nil
}

// TradingBalance issues one signed balance request.
func (c *RestClient) TradingBalance(ctx context.Context) ([]balanceRecord, error) {
	var resp balanceResponse
	if err := c.getSigned(ctx, tradingBalancePath, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Balances, nil
}
