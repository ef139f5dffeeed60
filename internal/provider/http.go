package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	dErrors "walletgate/pkg/domain-errors"
	"walletgate/pkg/platform/circuit"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "walletgate/internal/provider"

// HTTPClient speaks the provider's JSON API. Every call runs under the
// configured timeout, a tracing span and the shared circuit breaker.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	breaker *circuit.Breaker
	tracer  trace.Tracer
	logger  *slog.Logger
}

type HTTPOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.client = c }
}

func WithBreaker(b *circuit.Breaker) HTTPOption {
	return func(h *HTTPClient) { h.breaker = b }
}

func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(h *HTTPClient) { h.logger = logger }
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		breaker: circuit.New("provider"),
		tracer:  otel.Tracer(tracerName),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type apiError struct {
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Fields  []dErrors.FieldError `json:"fields"`
}

func (h *HTTPClient) do(ctx context.Context, op, method, path, idemKey string, in, out any) error {
	ctx, span := h.tracer.Start(ctx, "provider."+op, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("provider.operation", op)))
	defer span.End()

	err := h.call(ctx, op, method, path, idemKey, in, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(GetCategory(err)))
	}
	return err
}

func (h *HTTPClient) call(ctx context.Context, op, method, path, idemKey string, in, out any) error {
	if !h.breaker.Allow() {
		return NewProviderError(ErrorProviderOutage, op, "circuit open", nil)
	}

	err := h.roundTrip(ctx, op, method, path, idemKey, in, out)
	if IsRetryable(err) {
		if _, change := h.breaker.RecordFailure(); change.Opened {
			h.logger.WarnContext(ctx, "provider circuit opened", "operation", op, "error", err)
		}
	} else {
		if _, change := h.breaker.RecordSuccess(); change.Closed {
			h.logger.InfoContext(ctx, "provider circuit closed", "operation", op)
		}
	}
	return err
}

func (h *HTTPClient) roundTrip(ctx context.Context, op, method, path, idemKey string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return NewProviderError(ErrorInternal, op, "encode request", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return NewProviderError(ErrorInternal, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NewProviderError(ErrorTimeout, op, "request timed out", err)
		}
		return NewProviderError(ErrorProviderOutage, op, "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return NewProviderError(ErrorProviderOutage, op, "read response", err)
	}

	if resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewProviderError(ErrorBadData, op, "decode response", err)
	}
	return nil
}

func statusError(op string, status int, raw []byte) error {
	var body apiError
	_ = json.Unmarshal(raw, &body)
	msg := body.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		if body.Error == "insufficient_funds" {
			return NewProviderError(ErrorInsufficientFunds, op, msg, nil)
		}
		return Rejected(op, msg, body.Fields...)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderError(ErrorAuthentication, op, msg, nil)
	case status == http.StatusNotFound:
		return NewProviderError(ErrorNotFound, op, msg, nil)
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, op, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewProviderError(ErrorTimeout, op, msg, nil)
	case status >= 500:
		return NewProviderError(ErrorProviderOutage, op, msg, nil)
	default:
		return NewProviderError(ErrorBadData, op, fmt.Sprintf("unexpected status %d", status), nil)
	}
}

func customerPath(ref, suffix string) string {
	return "/v1/customers/" + url.PathEscape(ref) + suffix
}

func accountPath(accountID, suffix string) string {
	return "/v1/accounts/" + url.PathEscape(accountID) + suffix
}

func (h *HTTPClient) CreateOrUpdateIndividual(ctx context.Context, ref string, fields map[string]string) (*SubmissionResult, error) {
	var out SubmissionResult
	in := map[string]any{"fields": fields}
	if err := h.do(ctx, "CreateOrUpdateIndividual", http.MethodPut, customerPath(ref, "/individual"), ref, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) CreateOrUpdateBusiness(ctx context.Context, ref string, fields map[string]string, controlPerson map[string]string) (*SubmissionResult, error) {
	var out SubmissionResult
	in := map[string]any{"fields": fields, "control_person": controlPerson}
	if err := h.do(ctx, "CreateOrUpdateBusiness", http.MethodPut, customerPath(ref, "/business"), ref, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) UploadDocument(ctx context.Context, ref string, doc DocumentUpload) (*DocumentResult, error) {
	var out DocumentResult
	if err := h.do(ctx, "UploadDocument", http.MethodPost, customerPath(ref, "/documents"), "", doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) GetStatus(ctx context.Context, ref string) (*StatusResult, error) {
	var out StatusResult
	if err := h.do(ctx, "GetStatus", http.MethodGet, customerPath(ref, "/status"), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) CreateControlPersonSession(ctx context.Context, ref string) (*Session, error) {
	var out Session
	if err := h.do(ctx, "CreateControlPersonSession", http.MethodPost, customerPath(ref, "/control-person-session"), ref, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) CreateWalletAccount(ctx context.Context, ref string) (*Account, error) {
	var out Account
	if err := h.do(ctx, "CreateWalletAccount", http.MethodPost, customerPath(ref, "/wallet-account"), ref, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) CreateVirtualAccount(ctx context.Context, ref string) (*Account, error) {
	var out Account
	if err := h.do(ctx, "CreateVirtualAccount", http.MethodPost, customerPath(ref, "/virtual-account"), ref, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) GetBalance(ctx context.Context, accountID string) (int64, error) {
	var out struct {
		BalanceCents int64 `json:"balance_cents"`
	}
	if err := h.do(ctx, "GetBalance", http.MethodGet, accountPath(accountID, "/balance"), "", nil, &out); err != nil {
		return 0, err
	}
	return out.BalanceCents, nil
}

func (h *HTTPClient) GetDepositInstructions(ctx context.Context, accountID string) ([]Rail, error) {
	var out struct {
		Rails []Rail `json:"rails"`
	}
	if err := h.do(ctx, "GetDepositInstructions", http.MethodGet, accountPath(accountID, "/deposit-instructions"), "", nil, &out); err != nil {
		return nil, err
	}
	return out.Rails, nil
}

func (h *HTTPClient) CreateExternalAccount(ctx context.Context, accountID string, details BankDetails, key string) (*ExternalAccount, error) {
	var out ExternalAccount
	if err := h.do(ctx, "CreateExternalAccount", http.MethodPost, accountPath(accountID, "/external-accounts"), key, details, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) GetExternalAccount(ctx context.Context, accountID, externalAccountID string) (*ExternalAccount, error) {
	var out ExternalAccount
	path := accountPath(accountID, "/external-accounts/"+url.PathEscape(externalAccountID))
	if err := h.do(ctx, "GetExternalAccount", http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) CreateLiquidationAddress(ctx context.Context, accountID string, req LiquidationRequest, key string) (*LiquidationAddress, error) {
	var out LiquidationAddress
	if err := h.do(ctx, "CreateLiquidationAddress", http.MethodPost, accountPath(accountID, "/liquidation-addresses"), key, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) CreateCardAccount(ctx context.Context, accountID string, key string) (*CardAccount, error) {
	var out CardAccount
	if err := h.do(ctx, "CreateCardAccount", http.MethodPost, accountPath(accountID, "/cards"), key, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *HTTPClient) SetCardFrozen(ctx context.Context, accountID, cardID string, frozen bool) error {
	path := accountPath(accountID, "/cards/"+url.PathEscape(cardID)+"/freeze")
	return h.do(ctx, "SetCardFrozen", http.MethodPut, path, "", map[string]bool{"frozen": frozen}, nil)
}

func (h *HTTPClient) InitiateTransfer(ctx context.Context, accountID string, amountCents int64, dest Destination, key string) (*TransferResult, error) {
	var out TransferResult
	in := map[string]any{"amount_cents": amountCents, "destination": dest}
	if err := h.do(ctx, "InitiateTransfer", http.MethodPost, accountPath(accountID, "/transfers"), key, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
