package payments_test

import (
	"encoding/json"
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain/payments"
)

const successfulCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1500},
          {"Name": "MpesaReceiptNumber", "Value": "QAZ123"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

const cancelledCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-2",
      "CheckoutRequestID": "ws_CO_191220191020363926",
      "ResultCode": "1032",
      "ResultDesc": "Request cancelled by user"
    }
  }
}`

func TestParseCallback_success(t *testing.T) {
	cb, err := payments.ParseCallback([]byte(successfulCallback))
	require.NoError(t, err)

	outcome := cb.Outcome()
	assert.Equal(t, payments.StatusCompleted, outcome.Status)
	assert.Equal(t, "0", outcome.ResultCode)
	assert.Equal(t, "ws_CO_191220191020363925", outcome.CheckoutRequestID)
	require.NotNil(t, outcome.ReceiptNumber)
	assert.Equal(t, "QAZ123", *outcome.ReceiptNumber)
}

func TestParseCallback_failure(t *testing.T) {
	cb, err := payments.ParseCallback([]byte(cancelledCallback))
	require.NoError(t, err)

	outcome := cb.Outcome()
	assert.Equal(t, payments.StatusFailed, outcome.Status)
	assert.Equal(t, "1032", outcome.ResultCode)
	assert.Nil(t, outcome.ReceiptNumber)
}

func TestParseCallback_receiptIgnoredOnFailure(t *testing.T) {
	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"c1","ResultCode":1,"ResultDesc":"Insufficient funds",
		"CallbackMetadata":{"Item":[{"Name":"MpesaReceiptNumber","Value":"QAZ999"}]}}}}`

	cb, err := payments.ParseCallback([]byte(body))
	require.NoError(t, err)
	assert.Nil(t, cb.ReceiptNumber())
	assert.Equal(t, payments.StatusFailed, cb.Outcome().Status)
}

func TestParseCallback_malformed(t *testing.T) {
	testCases := map[string]string{
		"not json":          `{"Body":`,
		"empty body":        ``,
		"no stk callback":   `{"Body":{}}`,
		"no checkout id":    `{"Body":{"stkCallback":{"ResultCode":0}}}`,
		"no result code":    `{"Body":{"stkCallback":{"CheckoutRequestID":"c1"}}}`,
		"boolean code":      `{"Body":{"stkCallback":{"CheckoutRequestID":"c1","ResultCode":true}}}`,
		"array instead obj": `[]`,
	}

	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := payments.ParseCallback([]byte(body))
			assert.ErrorIs(t, err, payments.ErrMalformedCallback)
		})
	}
}

func TestNewCallbackLogEntry(t *testing.T) {
	entry := payments.NewCallbackLogEntry([]byte(`{"Body":`), nil)
	assert.True(t, json.Valid(entry.RawPayload))
	assert.Empty(t, entry.CheckoutRequestID)

	cb, err := payments.ParseCallback([]byte(successfulCallback))
	require.NoError(t, err)

	entry = payments.NewCallbackLogEntry([]byte(successfulCallback), &cb)
	assert.JSONEq(t, successfulCallback, string(entry.RawPayload))
	assert.Equal(t, "ws_CO_191220191020363925", entry.CheckoutRequestID)
	assert.Equal(t, "0", entry.ResultCode)
}

func TestPendingPayment_CanRetry(t *testing.T) {
	testCases := []struct {
		name     string
		payment  payments.PendingPayment
		expected bool
	}{
		{"pending", payments.PendingPayment{PaymentStatus: payments.StatusPending}, false},
		{"completed", payments.PendingPayment{PaymentStatus: payments.StatusCompleted}, false},
		{"failed", payments.PendingPayment{PaymentStatus: payments.StatusFailed}, true},
		{"cancelled", payments.PendingPayment{PaymentStatus: payments.StatusCancelled}, true},
		{"cancelled by user", payments.PendingPayment{PaymentStatus: payments.StatusPending, ResultCode: pointer.To("1032")}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.payment.CanRetry())
		})
	}
}

func TestPendingPayment_AlreadyApplied(t *testing.T) {
	p := payments.PendingPayment{PaymentStatus: payments.StatusCompleted, ResultCode: pointer.To("0")}

	assert.True(t, p.AlreadyApplied(payments.Outcome{Status: payments.StatusCompleted, ResultCode: "0"}))
	assert.False(t, p.AlreadyApplied(payments.Outcome{Status: payments.StatusFailed, ResultCode: "1"}))
	assert.False(t, payments.PendingPayment{PaymentStatus: payments.StatusPending}.AlreadyApplied(
		payments.Outcome{Status: payments.StatusCompleted, ResultCode: "0"}))
}

func TestNormalizeMSISDN(t *testing.T) {
	testCases := map[string]string{
		"0712345678":       "254712345678",
		"+254 712 345 678": "254712345678",
		"254712345678":     "254712345678",
		"712345678":        "254712345678",
		"0110345678":       "254110345678",
	}

	for in, expected := range testCases {
		got, err := payments.NormalizeMSISDN(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, got)
	}

	_, err := payments.NormalizeMSISDN("12345")
	assert.ErrorIs(t, err, payments.ErrInvalidPhoneNumber)
}
