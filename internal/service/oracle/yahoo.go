package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/KNICEX/price-alert/internal/entity"
	"github.com/shopspring/decimal"
)

var _ PriceOracle = (*YahooOracle)(nil)

const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooOracle reads the regular market price from the Yahoo Finance chart
// endpoint. It only quotes equities.
type YahooOracle struct {
	baseURL string
	client  *http.Client
}

type YahooOption func(o *YahooOracle)

func WithBaseURL(baseURL string) YahooOption {
	return func(o *YahooOracle) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(client *http.Client) YahooOption {
	return func(o *YahooOracle) {
		o.client = client
	}
}

func NewYahooOracle(opts ...YahooOption) *YahooOracle {
	o := &YahooOracle{
		baseURL: DefaultYahooBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string          `json:"symbol"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (o *YahooOracle) CurrentPrice(ctx context.Context, symbol string, class entity.AssetClass) (decimal.Decimal, error) {
	if class != entity.AssetClassEquity {
		return decimal.Zero, unavailable(symbol, "yahoo only quotes equities, got %q", class)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=1d", o.baseURL, url.PathEscape(strings.ToUpper(symbol)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, unavailable(symbol, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	// yahoo rejects requests without a browser-like agent
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; price-alert/1.0)")

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, unavailable(symbol, "yahoo request: %v", err)
	}
	defer resp.Body.Close()

	var body yahooChartResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, unavailable(symbol, "yahoo returned %d: decode: %v", resp.StatusCode, err)
	}
	if body.Chart.Error != nil {
		return decimal.Zero, unavailable(symbol, "yahoo error %s: %s", body.Chart.Error.Code, body.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, unavailable(symbol, "yahoo returned %d", resp.StatusCode)
	}
	if len(body.Chart.Result) == 0 {
		return decimal.Zero, unavailable(symbol, "no chart result")
	}
	return checkPrice(symbol, body.Chart.Result[0].Meta.RegularMarketPrice)
}
