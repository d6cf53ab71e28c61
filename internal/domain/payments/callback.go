package payments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/AlekSi/pointer"
)

var ErrMalformedCallback = errors.New("malformed payment callback")

// CallbackAck is the only body the gateway ever gets back.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

var Accepted = CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

type CallbackEnvelope struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        ResultCode        `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// ResultCode accepts both the numeric and the string form the gateway sends.
type ResultCode string

func (c *ResultCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("empty result code")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ResultCode(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = ResultCode(n.String())

	return nil
}

// ParseCallback decodes a raw webhook body. Bodies without a checkout request id are rejected.
func ParseCallback(raw []byte) (StkCallback, error) {
	var envelope CallbackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return StkCallback{}, fmt.Errorf("%w: %s", ErrMalformedCallback, err)
	}

	cb := envelope.Body.StkCallback
	if cb == nil {
		return StkCallback{}, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedCallback)
	}
	if cb.CheckoutRequestID == "" {
		return StkCallback{}, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	if cb.ResultCode == "" {
		return StkCallback{}, fmt.Errorf("%w: missing ResultCode", ErrMalformedCallback)
	}

	return *cb, nil
}

func (c StkCallback) Succeeded() bool {
	return c.ResultCode == "0"
}

func (c StkCallback) metadataValue(name string) (string, bool) {
	if c.CallbackMetadata == nil {
		return "", false
	}

	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name || item.Value == nil {
			continue
		}

		switch v := item.Value.(type) {
		case string:
			return v, true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		default:
			return fmt.Sprint(v), true
		}
	}

	return "", false
}

// ReceiptNumber is only reported for successful payments.
func (c StkCallback) ReceiptNumber() *string {
	if !c.Succeeded() {
		return nil
	}

	receipt, ok := c.metadataValue("MpesaReceiptNumber")
	if !ok {
		return nil
	}

	return pointer.To(receipt)
}

// Outcome is what a callback changes on the pending payment.
type Outcome struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        string
	ResultDesc        string
	Status            Status
	ReceiptNumber     *string
}

func (c StkCallback) Outcome() Outcome {
	status := StatusFailed
	if c.Succeeded() {
		status = StatusCompleted
	}

	return Outcome{
		CheckoutRequestID: c.CheckoutRequestID,
		MerchantRequestID: c.MerchantRequestID,
		ResultCode:        string(c.ResultCode),
		ResultDesc:        c.ResultDesc,
		Status:            status,
		ReceiptNumber:     c.ReceiptNumber(),
	}
}

// CallbackLogEntry is an immutable audit record of a webhook delivery.
type CallbackLogEntry struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResultCode        string
	ResultDesc        string
	RawPayload        json.RawMessage
}

// NewCallbackLogEntry keeps the raw body even when it is not valid JSON.
func NewCallbackLogEntry(raw []byte, cb *StkCallback) CallbackLogEntry {
	entry := CallbackLogEntry{RawPayload: raw}
	if !json.Valid(raw) {
		quoted, _ := json.Marshal(string(raw))
		entry.RawPayload = quoted
	}

	if cb != nil {
		entry.CheckoutRequestID = cb.CheckoutRequestID
		entry.MerchantRequestID = cb.MerchantRequestID
		entry.ResultCode = string(cb.ResultCode)
		entry.ResultDesc = cb.ResultDesc
	}

	return entry
}
