// Package chapa реализует domain.PaymentGateway поверх HTTP API Chapa.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// Адрес публичного API Chapa.
	DefaultBaseURL = "https://api.chapa.co/v1"
	// DefaultTimeout ограничивает один запрос к шлюзу.
	DefaultTimeout = 10 * time.Second

	statusSuccess  = "success"
	maxErrorBodyKB = 64
)

// Config описывает подключение к шлюзу.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client вызывает Chapa без повторов: каждый вызов ровно один HTTP-запрос.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создаёт клиента шлюза.
func NewClient(cfg Config, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "chapa")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		secret:     strings.TrimSpace(cfg.SecretKey),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type initializeRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency,omitempty"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url"`
	Customization customization `json:"customization"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message json.RawMessage `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// message отдаёт текст ошибки шлюза; Chapa иногда присылает объект вместо строки.
func (e envelope) message() string {
	if len(e.Message) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(e.Message, &text); err == nil {
		return text
	}
	return string(e.Message)
}

type initializeData struct {
	CheckoutURL string `json:"checkout_url"`
}

type verifyData struct {
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	TxRef     string          `json:"tx_ref"`
}

// Initialize открывает hosted checkout и возвращает ссылку на оплату.
func (c *Client) Initialize(ctx context.Context, req domain.PaymentInitRequest) (domain.PaymentSession, error) {
	if c.secret == "" {
		return domain.PaymentSession{}, domain.NewPaymentInitError("secret key is not configured")
	}

	body, err := json.Marshal(initializeRequest{
		Amount:      req.Amount.String(),
		Currency:    req.Currency,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		TxRef:       req.TxRef,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Customization: customization{
			Title:       req.Title,
			Description: req.Description,
		},
	})
	if err != nil {
		return domain.PaymentSession{}, domain.NewPaymentInitError("encode request: %v", err)
	}

	env, status, err := c.do(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		c.logger.WithError(err).WithField("tx_ref", req.TxRef).Warn("chapa initialize request failed")
		return domain.PaymentSession{}, domain.NewPaymentInitError("%v", err)
	}
	if status/100 != 2 || env.Status != statusSuccess {
		msg := env.message()
		if msg == "" {
			msg = "payment initialization failed"
		}
		c.logger.WithFields(log.Fields{"tx_ref": req.TxRef, "http_status": status}).Warn("chapa initialize rejected: " + msg)
		return domain.PaymentSession{}, domain.NewPaymentInitError("%s", msg)
	}

	var data initializeData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return domain.PaymentSession{}, domain.NewPaymentInitError("gateway response has no checkout_url")
	}
	return domain.PaymentSession{CheckoutURL: data.CheckoutURL}, nil
}

// Verify проверяет транзакцию по tx_ref.
func (c *Client) Verify(ctx context.Context, txRef string) (domain.PaymentVerification, error) {
	if c.secret == "" {
		return domain.PaymentVerification{}, domain.NewPaymentVerificationError("secret key is not configured")
	}

	env, status, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(txRef), nil)
	if err != nil {
		c.logger.WithError(err).WithField("tx_ref", txRef).Warn("chapa verify request failed")
		return domain.PaymentVerification{}, domain.NewPaymentVerificationError("%v", err)
	}
	if status/100 != 2 || env.Status != statusSuccess {
		msg := env.message()
		if msg == "" {
			msg = "payment verification failed"
		}
		return domain.PaymentVerification{}, domain.NewPaymentVerificationError("%s", msg)
	}

	var data verifyData
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return domain.PaymentVerification{}, domain.NewPaymentVerificationError("decode verify data: %v", err)
		}
	}
	return domain.PaymentVerification{
		Status:    data.Status,
		Amount:    data.Amount,
		Currency:  data.Currency,
		Method:    data.Method,
		Reference: data.Reference,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (envelope, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return envelope{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return envelope{}, 0, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyKB<<10))
	if err != nil {
		return envelope{}, resp.StatusCode, fmt.Errorf("read gateway response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, resp.StatusCode, fmt.Errorf("decode gateway response (status %d): %w", resp.StatusCode, err)
	}
	return env, resp.StatusCode, nil
}

var _ domain.PaymentGateway = (*Client)(nil)
