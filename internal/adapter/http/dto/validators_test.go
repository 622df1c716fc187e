package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := InviteContractorRequest{
		Name:     "  Ada Lovelace  ",
		Email:    " ada@example.com ",
		Currency: " usd ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "Ada Lovelace", req.Name)
	assert.Equal(t, "ada@example.com", req.Email)
	assert.Equal(t, "usd", req.Currency)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := SubmitInvoiceRequest{
		Amount:      "100.00",
		Description: "March work <script>alert('x')</script>",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Description, "&lt;script&gt;")
	assert.NotContains(t, req.Description, "<script>")
}

func TestSanitizeStruct_HandlesPointerString(t *testing.T) {
	invoiceID := "  7f1d2c7e-3c1a-4f7e-9a55-0b2d8f3a9c11  "
	req := CreatePayoutRequest{Amount: "5", InvoiceID: &invoiceID}
	SanitizeStruct(&req)

	assert.Equal(t, "7f1d2c7e-3c1a-4f7e-9a55-0b2d8f3a9c11", *req.InvoiceID)
}

func TestSanitizeStruct_NilPointerIsNoOp(t *testing.T) {
	req := CreatePayoutRequest{Amount: "5"}
	SanitizeStruct(&req)
	assert.Nil(t, req.InvoiceID)
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID(t *testing.T) {
	for _, tc := range []string{"invite_01h455vb4pex5vsknk084sn02q", "REF_002", "a.b.c", "ABC-def_GHI.123"} {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
	for _, tc := range []string{"ref 001", "ref<001>", "ref;DROP", "", "ref\n001"} {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestAmountValidator(t *testing.T) {
	valid := []string{"1", "0.01", "100.50", "  25.00 ", "9999999999999999.99"}
	for _, amount := range valid {
		err := binding.Validator.ValidateStruct(&FundWalletRequest{Amount: amount})
		assert.NoError(t, err, "expected valid: %q", amount)
	}

	invalid := []string{"0", "-5", "0.001", "abc", "1e400", "10000000000000000"}
	for _, amount := range invalid {
		err := binding.Validator.ValidateStruct(&FundWalletRequest{Amount: amount})
		assert.Error(t, err, "expected invalid: %q", amount)
	}
}

func TestCurrencyValidator(t *testing.T) {
	ok := QuoteRequest{SourceCurrency: "usd", DestinationCurrency: "EUR", Amount: "10"}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	bad := QuoteRequest{SourceCurrency: "US", DestinationCurrency: "EUR", Amount: "10"}
	assert.Error(t, binding.Validator.ValidateStruct(&bad))

	digits := QuoteRequest{SourceCurrency: "USD", DestinationCurrency: "E1R", Amount: "10"}
	assert.Error(t, binding.Validator.ValidateStruct(&digits))
}

func TestOptionalCurrency(t *testing.T) {
	req := WithdrawRequest{Amount: "10"}
	assert.NoError(t, binding.Validator.ValidateStruct(&req))

	req.DestinationCurrency = "XX"
	assert.Error(t, binding.Validator.ValidateStruct(&req))
}

func TestStatusEnums(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&UpdateKYCRequest{Status: "approved"}))
	assert.Error(t, binding.Validator.ValidateStruct(&UpdateKYCRequest{Status: "verified"}))
	assert.NoError(t, binding.Validator.ValidateStruct(&SetCardStatusRequest{Status: "frozen"}))
	assert.Error(t, binding.Validator.ValidateStruct(&SetCardStatusRequest{Status: "lost"}))
}
