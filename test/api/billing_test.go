package api_test

import (
	"bytes"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/cupping-console/internal/model"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestBillingPipeline(t *testing.T) {
	env := newTestEnv(t)
	env.addCoupon(t, &model.Coupon{
		Code:               "TEN10",
		ReferrerName:       "Dr. Samir",
		Kind:               model.DiscountPercentage,
		Value:              decimal.NewFromInt(10),
		ReferralPercentage: decimal.NewFromInt(5),
		MaxUses:            10,
	})

	patientID, paymentID := env.awaitingPayment(t, "Hana Fathy", "female", 3)
	assert.Equal(t, "awaiting_payment", env.status(t, patientID))

	payResp := env.client.MakeRequest(http.MethodGet, "/payments/"+paymentID, nil)
	require.True(t, payResp.IsSuccess(), payResp.ErrorMessage())
	assert.Equal(t, "pending", payResp.GetString("status"))
	assertDecimal(t, "250", payResp.Object()["base_amount"])

	quoteResp := env.client.MakeRequest(http.MethodGet, "/pricing/quote?points=3&manual_discount=20&coupon=TEN10", nil)
	require.True(t, quoteResp.IsSuccess(), quoteResp.ErrorMessage())
	assertDecimal(t, "25", quoteResp.Object()["coupon_discount"])
	assertDecimal(t, "205", quoteResp.Object()["final"])

	// Payment has not been taken yet.
	resp := env.client.MakeRequest(http.MethodPost, "/patients/"+patientID+"/complete", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.settle(paymentID, map[string]interface{}{
		"method":          "split",
		"cash":            "100",
		"card":            "100",
		"manual_discount": "20",
		"coupon_code":     "TEN10",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "awaiting_payment", env.status(t, patientID))

	couponResp := env.client.MakeRequest(http.MethodGet, "/coupons/TEN10", nil)
	require.True(t, couponResp.IsSuccess(), couponResp.ErrorMessage())
	coupon := couponResp.Object()["coupon"].(map[string]interface{})
	assert.EqualValues(t, 0, coupon["used_count"])

	resp = env.settle(paymentID, map[string]interface{}{
		"method":          "split",
		"cash":            "100",
		"card":            "105",
		"manual_discount": "20",
		"coupon_code":     "TEN10",
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage())
	settled := resp.Object()
	assert.Equal(t, "completed", settled["status"])
	assertDecimal(t, "205", settled["amount"])
	assertDecimal(t, "10.25", settled["referral_amount"])
	assert.NotEmpty(t, settled["paid_at"])

	patientResp := env.client.MakeRequest(http.MethodGet, "/patients/"+patientID, nil)
	require.True(t, patientResp.IsSuccess(), patientResp.ErrorMessage())
	assert.Equal(t, "paid_assigned", patientResp.GetString("status"))
	assert.Equal(t, doctorID.String(), patientResp.GetString("doctor_id"))

	couponResp = env.client.MakeRequest(http.MethodGet, "/coupons/TEN10", nil)
	require.True(t, couponResp.IsSuccess(), couponResp.ErrorMessage())
	coupon = couponResp.Object()["coupon"].(map[string]interface{})
	assert.EqualValues(t, 1, coupon["used_count"])

	// Completed payments are never reopened.
	resp = env.settle(paymentID, map[string]interface{}{"method": "cash"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "payment already settled", resp.ErrorMessage())

	invResp := env.client.MakeRequest(http.MethodGet, "/payments/"+paymentID+"/invoice", nil)
	require.True(t, invResp.IsSuccess(), invResp.ErrorMessage())
	inv := invResp.Object()
	assertDecimal(t, "205", inv["subtotal"])
	assertDecimal(t, "0", inv["tax"])
	assertDecimal(t, "205", inv["total"])
	number := inv["invoice_number"].(string)
	assert.True(t, strings.HasPrefix(number, "INV-"+time.Now().UTC().Format("20060102")+"-"), number)
	assert.Equal(t, strings.ToUpper(paymentID[len(paymentID)-6:]), number[len(number)-6:])
	assert.NotContains(t, inv["payload"], "VAT")
	assert.NotEmpty(t, inv["qr_image"])

	again := env.client.MakeRequest(http.MethodGet, "/payments/"+paymentID+"/invoice", nil)
	require.True(t, again.IsSuccess(), again.ErrorMessage())
	assert.True(t, bytes.Equal(invResp.Data, again.Data), "invoice must be identical on every call")

	code, contentType, body, err := env.client.Raw("/payments/" + paymentID + "/invoice/qr.png")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "image/png", contentType)
	assert.True(t, bytes.HasPrefix(body, pngMagic))

	resp = env.client.MakeRequest(http.MethodPost, "/patients/"+patientID+"/complete", nil)
	require.True(t, resp.IsSuccess(), resp.ErrorMessage())
	assert.Equal(t, "completed", resp.GetString("status"))
}

func TestTaxableInvoice(t *testing.T) {
	env := newTestEnv(t)
	_, paymentID := env.awaitingPayment(t, "Youssef Adly", "male", 3)

	resp := env.settle(paymentID, map[string]interface{}{
		"method":          "cash",
		"manual_discount": "45",
		"taxable":         true,
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage())
	assertDecimal(t, "205", resp.Object()["amount"])

	invResp := env.client.MakeRequest(http.MethodGet, "/payments/"+paymentID+"/invoice", nil)
	require.True(t, invResp.IsSuccess(), invResp.ErrorMessage())
	inv := invResp.Object()
	assertDecimal(t, "205", inv["subtotal"])
	assertDecimal(t, "30.75", inv["tax"])
	assertDecimal(t, "235.75", inv["total"])
	assert.Equal(t, sellerName, inv["seller_name"])
	assert.Equal(t, taxID, inv["tax_id"])

	payload := inv["payload"].(string)
	assert.Contains(t, payload, "Seller: "+sellerName)
	assert.Contains(t, payload, "Tax ID: "+taxID)
	assert.Contains(t, payload, "VAT: 30.75")
	assert.Contains(t, payload, "Total: 235.75")
}

func TestInvoiceForPendingPaymentIsRejected(t *testing.T) {
	env := newTestEnv(t)
	_, paymentID := env.awaitingPayment(t, "Salma Reda", "female", 1)

	resp := env.client.MakeRequest(http.MethodGet, "/payments/"+paymentID+"/invoice", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCouponCeilingRejectsSettlement(t *testing.T) {
	env := newTestEnv(t)
	env.addCoupon(t, &model.Coupon{
		Code:    "ONCE",
		Kind:    model.DiscountFixed,
		Value:   decimal.NewFromInt(50),
		MaxUses: 1,
	})

	_, firstPayment := env.awaitingPayment(t, "Adam Fouad", "male", 3)
	secondPatient, secondPayment := env.awaitingPayment(t, "Nour Samy", "female", 3)

	resp := env.settle(firstPayment, map[string]interface{}{"method": "card", "coupon_code": "ONCE"})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage())
	assertDecimal(t, "200", resp.Object()["amount"])

	resp = env.settle(secondPayment, map[string]interface{}{"method": "card", "coupon_code": "ONCE"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "coupon usage limit reached", resp.ErrorMessage())

	payResp := env.client.MakeRequest(http.MethodGet, "/payments/"+secondPayment, nil)
	require.True(t, payResp.IsSuccess(), payResp.ErrorMessage())
	assert.Equal(t, "pending", payResp.GetString("status"))
	assert.Equal(t, "awaiting_payment", env.status(t, secondPatient))
}

func TestSettlementRequiresDoctor(t *testing.T) {
	env := newTestEnv(t)
	_, paymentID := env.awaitingPayment(t, "Rami Tarek", "male", 5)

	resp := env.client.MakeRequest(http.MethodPost, "/payments/"+paymentID+"/settle", map[string]interface{}{
		"method": "cash",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRevenueReport(t *testing.T) {
	env := newTestEnv(t)
	_, splitPayment := env.awaitingPayment(t, "Dina Magdy", "female", 4)
	_, cashPayment := env.awaitingPayment(t, "Tamer Ezz", "male", 3)
	_, _ = env.awaitingPayment(t, "Unpaid Patient", "male", 1)

	// 4 points round up to the 5-point tier.
	resp := env.settle(splitPayment, map[string]interface{}{
		"method": "split",
		"cash":   "150",
		"card":   "250",
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage())

	resp = env.settle(cashPayment, map[string]interface{}{
		"method":          "cash",
		"manual_discount": "45",
		"taxable":         true,
	})
	require.True(t, resp.IsSuccess(), resp.ErrorMessage())

	now := time.Now()
	from := now.AddDate(0, 0, -1).Format("2006-01-02")
	to := now.AddDate(0, 0, 2).Format("2006-01-02")
	repResp := env.client.MakeRequest(http.MethodGet, "/reports/revenue?from="+from+"&to="+to, nil)
	require.True(t, repResp.IsSuccess(), repResp.ErrorMessage())

	rep := repResp.Object()
	assert.EqualValues(t, 2, rep["payments"])
	assertDecimal(t, "355", rep["cash"])
	assertDecimal(t, "250", rep["card"])
	assertDecimal(t, "0", rep["bank_transfer"])
	assertDecimal(t, "30.75", rep["tax_collected"])
	assertDecimal(t, "635.75", rep["total"])

	repResp = env.client.MakeRequest(http.MethodGet, "/reports/revenue?from="+to+"&to="+from, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, repResp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	code, _, _, err := env.root.Raw("/health/ready")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)

	code, _, body, err := env.root.Raw("/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "cupping_http_requests_total")
}
