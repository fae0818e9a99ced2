package okx

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Client talks to the OKX v5 REST API. Market endpoints work without
// credentials; account endpoints require key, secret and passphrase.
type Client struct {
	apiKey     string
	secretKey  string
	passphrase string
	baseURL    string
	timeframe  string
	httpClient *http.Client
}

func NewClient(baseURL, timeframe, apiKey, secretKey, passphrase string) *Client {
	return &Client{
		apiKey:     apiKey,
		secretKey:  secretKey,
		passphrase: passphrase,
		baseURL:    baseURL,
		timeframe:  timeframe,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// apiResponse is the OKX v5 envelope. Code "0" means success.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// GetCandles fetches candlestick data, normalized to oldest-first order
// (OKX returns newest first).
func (c *Client) GetCandles(instID string, limit int) ([]Candle, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d", instID, c.timeframe, limit)

	data, err := c.request("GET", path)
	if err != nil {
		return nil, fmt.Errorf("error fetching candles for %s: %w", instID, err)
	}

	// Each row: [ts, open, high, low, close, vol, volCcy, volCcyQuote, confirm]
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing candles: %w", err)
	}

	candles := make([]Candle, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("malformed candle row with %d fields", len(row))
		}
		ts, _ := strconv.ParseInt(row[0], 10, 64)
		// Reverse into oldest-first order
		candles[len(rows)-1-i] = Candle{
			Timestamp: ts,
			Open:      parseFloat(row[1]),
			High:      parseFloat(row[2]),
			Low:       parseFloat(row[3]),
			Close:     parseFloat(row[4]),
			Volume:    parseFloat(row[5]),
		}
	}

	return candles, nil
}

// GetTicker fetches the latest price for an instrument.
func (c *Client) GetTicker(instID string) (*Ticker, error) {
	path := fmt.Sprintf("/api/v5/market/ticker?instId=%s", instID)

	data, err := c.request("GET", path)
	if err != nil {
		return nil, fmt.Errorf("error fetching ticker for %s: %w", instID, err)
	}

	var rows []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing ticker: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty ticker response for %s", instID)
	}

	return &Ticker{InstID: rows[0].InstID, Last: parseFloat(rows[0].Last)}, nil
}

// GetBalance returns the available USDT balance.
func (c *Client) GetBalance() (float64, error) {
	data, err := c.request("GET", "/api/v5/account/balance")
	if err != nil {
		return 0, fmt.Errorf("error fetching balance: %w", err)
	}

	var rows []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("error parsing balance: %w", err)
	}

	for _, row := range rows {
		for _, detail := range row.Details {
			if detail.Ccy == "USDT" {
				return parseFloat(detail.AvailBal), nil
			}
		}
	}

	return 0, nil
}

// GetPositions returns open positions keyed by instrument ID.
func (c *Client) GetPositions() (map[string]Position, error) {
	data, err := c.request("GET", "/api/v5/account/positions")
	if err != nil {
		return nil, fmt.Errorf("error fetching positions: %w", err)
	}

	var rows []struct {
		InstID   string `json:"instId"`
		Pos      string `json:"pos"`
		AvgPx    string `json:"avgPx"`
		MarkPx   string `json:"markPx"`
		PosSide  string `json:"posSide"`
		UplRatio string `json:"uplRatio"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing positions: %w", err)
	}

	positions := make(map[string]Position, len(rows))
	for _, row := range rows {
		positions[row.InstID] = Position{
			InstID:             row.InstID,
			Size:               parseFloat(row.Pos),
			AvgEntryPrice:      parseFloat(row.AvgPx),
			MarkPrice:          parseFloat(row.MarkPx),
			Side:               row.PosSide,
			UnrealizedPnLRatio: parseFloat(row.UplRatio),
		}
	}

	return positions, nil
}

// GetPendingOrders returns unfilled limit orders.
func (c *Client) GetPendingOrders() ([]PendingOrder, error) {
	data, err := c.request("GET", "/api/v5/trade/orders-pending")
	if err != nil {
		return nil, fmt.Errorf("error fetching pending orders: %w", err)
	}

	var rows []struct {
		InstID string `json:"instId"`
		Px     string `json:"px"`
		Side   string `json:"side"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("error parsing pending orders: %w", err)
	}

	orders := make([]PendingOrder, len(rows))
	for i, row := range rows {
		orders[i] = PendingOrder{
			InstID: row.InstID,
			Price:  parseFloat(row.Px),
			Side:   row.Side,
		}
	}

	return orders, nil
}

// request performs one API call and unwraps the OKX envelope.
func (c *Client) request(method, path string) (json.RawMessage, error) {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	if c.apiKey != "" {
		timestamp := isoTimestamp(time.Now().UTC())
		req.Header.Set("OK-ACCESS-KEY", c.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", c.sign(timestamp, method, path, ""))
		req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.passphrase)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: %s", string(body))
	}

	var envelope apiResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}
	if envelope.Code != "0" {
		return nil, fmt.Errorf("API error %s: %s", envelope.Code, envelope.Msg)
	}

	return envelope.Data, nil
}

// sign builds the OK-ACCESS-SIGN header: base64 of the HMAC-SHA256 over
// timestamp + method + path + body.
func (c *Client) sign(timestamp, method, path, body string) string {
	message := timestamp + method + path + body
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// isoTimestamp formats the time the way OKX expects: ISO-8601 with
// millisecond precision and a trailing Z.
func isoTimestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000Z")
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
