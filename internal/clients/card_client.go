// internal/clients/card_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"sinoman/internal/apperr"
	"sinoman/internal/finance"
	"sinoman/internal/httpjson"
	"sinoman/internal/membercard"
	"sinoman/internal/membership"
)

// CardClient talks to a running card service.
type CardClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewCardClient(baseURL string, logger *zap.Logger) *CardClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	// only retry transport failures and overloaded servers
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() == http.StatusServiceUnavailable
	})

	return &CardClient{httpClient: client, logger: logger}
}

func (c *CardClient) VerifyCard(ctx context.Context, qr string) (*membercard.VerificationResult, error) {
	var res membercard.VerificationResult
	if err := c.post(ctx, "/cards/verify", map[string]string{"qr_data": qr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CardClient) QuickVerify(ctx context.Context, qr string) (*membercard.QuickResult, error) {
	var res membercard.QuickResult
	if err := c.post(ctx, "/cards/quick-verify", map[string]string{"qr_data": qr}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CardClient) CheckIn(ctx context.Context, qr, eventID string) (*membership.CheckInResult, error) {
	var res membership.CheckInResult
	if err := c.post(ctx, "/attendance/check-in", map[string]string{"qr_data": qr, "event_id": eventID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *CardClient) CardHistory(ctx context.Context, memberID string) ([]membership.CardEvent, error) {
	var out struct {
		Events []membership.CardEvent `json:"events"`
	}
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("memberID", memberID).
		SetResult(&out).
		SetError(&httpjson.ErrorResponse{}).
		Get("/members/{memberID}/card-events")
	if err := c.check("GET card-events", resp, err); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (c *CardClient) DistributeSHU(ctx context.Context, cfg finance.SHUConfig) (*finance.SHUResult, error) {
	var res finance.SHUResult
	if err := c.post(ctx, "/finance/shu", cfg, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExportSHU returns the xlsx report for cfg.
func (c *CardClient) ExportSHU(ctx context.Context, cfg finance.SHUConfig) ([]byte, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(cfg).
		SetError(&httpjson.ErrorResponse{}).
		Post("/finance/shu/export")
	if err := c.check("POST /finance/shu/export", resp, err); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *CardClient) post(ctx context.Context, path string, body, result any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		SetError(&httpjson.ErrorResponse{}).
		Post(path)
	return c.check("POST "+path, resp, err)
}

// check turns transport failures and error responses into errors. Error
// responses keep the kind the server reported.
func (c *CardClient) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.logger.Warn("card service request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}

	e, ok := resp.Error().(*httpjson.ErrorResponse)
	if !ok || e.Message == "" {
		return apperr.New(apperr.KindInternal, op, fmt.Sprintf("unexpected status code: %d", resp.StatusCode()))
	}
	return &apperr.Error{
		Kind:    apperr.ParseKind(e.Kind),
		Op:      op,
		Field:   e.Field,
		Message: e.Message,
	}
}
