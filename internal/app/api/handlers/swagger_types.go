package handlers

import (
	"github.com/tierbill/tierbill/internal/app/service/analytics"
	"github.com/tierbill/tierbill/internal/app/service/ledger"
	"github.com/tierbill/tierbill/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespInitializePayment wraps the checkout reference in the standard envelope.
type RespInitializePayment struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    initializePaymentResponse `json:"data"`
}

// RespListTransactions wraps ledger.ListResponse in the standard envelope.
type RespListTransactions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ledger.ListResponse      `json:"data"`
}

// RespAnalytics wraps analytics.Response in the standard envelope.
type RespAnalytics struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    analytics.Response       `json:"data"`
}
