package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"

	"marketplace/internal/config"
)

// ErrSTKPushRejected marks gateway answers that will not change on retry.
var ErrSTKPushRejected = errors.New("stk push rejected")

var eat = time.FixedZone("EAT", 3*60*60)

const maxAccountReferenceLen = 12

type STKPushRequest struct {
	PhoneNumber      string
	Amount           float64
	AccountReference string
	TransactionDesc  string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type gatewayError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type MpesaClient struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewMpesaClient(cfg config.MpesaConfig, httpClient *http.Client) *MpesaClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &MpesaClient{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (c *MpesaClient) InitiateSTKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().In(eat).Format("20060102150405")
	reference := req.AccountReference
	if len(reference) > maxAccountReferenceLen {
		reference = reference[:maxAccountReferenceLen]
	}

	amount := int64(math.Ceil(req.Amount))
	if amount < 1 {
		return nil, fmt.Errorf("amount %.2f: %w", req.Amount, ErrSTKPushRejected)
	}

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   c.cfg.TransactionType,
		Amount:            amount,
		PartyA:            req.PhoneNumber,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       req.PhoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   req.TransactionDesc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stk push request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call stk push: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read stk push response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.resetToken()
		return nil, fmt.Errorf("stk push unauthorized: %s", resp.Status)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("stk push failed: %s: %s", resp.Status, respBody)
	}
	if resp.StatusCode >= 400 {
		var gwErr gatewayError
		_ = json.Unmarshal(respBody, &gwErr)
		return nil, fmt.Errorf("%s %s: %w", gwErr.ErrorCode, gwErr.ErrorMessage, ErrSTKPushRejected)
	}

	var stkResp STKPushResponse
	if err := json.Unmarshal(respBody, &stkResp); err != nil {
		return nil, fmt.Errorf("failed to decode stk push response: %w", err)
	}
	if stkResp.ResponseCode != "0" {
		return nil, fmt.Errorf("response code %s %s: %w", stkResp.ResponseCode, stkResp.ResponseDescription, ErrSTKPushRejected)
	}

	log.FromContext(ctx).
		WithField("checkout_request_id", stkResp.CheckoutRequestID).
		Info("STK push accepted")

	return &stkResp, nil
}

func (c *MpesaClient) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + timestamp))
}

func (c *MpesaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get mpesa access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get mpesa access token: %s", resp.Status)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode mpesa access token: %w", err)
	}

	expiresIn, err := strconv.Atoi(tokenResp.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3599
	}

	c.token = tokenResp.AccessToken
	// refresh a minute before the gateway expires it
	c.tokenExpiry = c.now().Add(time.Duration(expiresIn)*time.Second - time.Minute)

	return c.token, nil
}

func (c *MpesaClient) resetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = ""
}
