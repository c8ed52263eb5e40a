package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mevbacktest/backtester/business/pricing/domain"
	"github.com/mevbacktest/backtester/internal/apperror"
	"github.com/mevbacktest/backtester/internal/httpclient"
	"github.com/mevbacktest/backtester/internal/logger"
)

const (
	// Binance REST API endpoints
	BaseAPIURL   = "https://api.binance.com"
	BaseAPIURLUS = "https://api.binance.us"

	// Default HTTP client settings
	httpTimeout = 10 * time.Second
)

// HTTPClientConfig holds configuration for the Binance HTTP client.
type HTTPClientConfig struct {
	BaseURL string        // API base URL (empty = default)
	Timeout time.Duration // Request timeout
}

// DefaultHTTPClientConfig returns sensible defaults.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		BaseURL: BaseAPIURL,
		Timeout: httpTimeout,
	}
}

// HTTPClient provides Binance REST API access; it is the only source of
// CEX klines in this tree.
type HTTPClient struct {
	client httpclient.Client
	config HTTPClientConfig
	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewHTTPClient creates a new Binance HTTP client.
func NewHTTPClient(cfg HTTPClientConfig, log logger.LoggerInterface) (*HTTPClient, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseAPIURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("binance"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &HTTPClient{
		client: client,
		config: cfg,
		logger: log,
		tracer: tracer,
	}, nil
}

// klinesEndpoint is Binance's historical candlestick REST endpoint.
const klinesEndpoint = "/api/v3/klines"

// rawKline mirrors the positional array Binance returns per candle:
// [openTime, open, high, low, close, volume, closeTime, ...].
type rawKline [12]any

// GetKlines fetches up to limit historical candles for symbol at the given
// interval (e.g. "1m", "1h"), oldest first.
func (c *HTTPClient) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	ctx, span := c.tracer.Start(ctx, "binance.http.get_klines",
		trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("interval", interval),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 || limit > 1000 {
		limit = 500
	}

	var raw []rawKline
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "klines"),
			httpclient.NewLabel("symbol", symbol),
		),
		httpclient.WithResponseErrorHandler(binanceErrorHandler),
	).
		SetQueryParam("symbol", symbol).
		SetQueryParam("interval", interval).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&raw).
		Get(ctx, klinesEndpoint)

	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeBinanceConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch klines from REST API"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeBinanceConnectionFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	klines := make([]domain.Kline, 0, len(raw))
	for _, k := range raw {
		openTimeF, ok := k[0].(float64)
		if !ok {
			continue
		}
		closeStr, ok := k[4].(string)
		if !ok {
			continue
		}
		closePrice, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		klines = append(klines, domain.Kline{
			OpenTimeMs: int64(openTimeF),
			ClosePrice: closePrice,
		})
	}

	span.SetAttributes(attribute.Int("klines", len(klines)))
	c.logger.Debug(ctx, "fetched klines via HTTP", "symbol", symbol, "interval", interval, "count", len(klines))

	return klines, nil
}

// BinanceAPIError represents an error response from Binance API.
type BinanceAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *BinanceAPIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// binanceErrorHandler parses Binance API error responses.
func binanceErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr BinanceAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
