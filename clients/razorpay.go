package clients

import (
	"fmt"

	"github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// RazorpayClientWrapper provides an interface for Razorpay operations.
// This interface allows for easier testing by mocking Razorpay interactions.
type RazorpayClientWrapper interface {
	CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (string, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// RazorpayClient implements RazorpayClientWrapper using the actual Razorpay SDK.
type RazorpayClient struct {
	Client    *razorpay.Client
	keySecret string
}

// NewRazorpayClient creates and returns a new instance of RazorpayClient.
// It initializes the underlying Razorpay SDK client with the provided key ID and secret.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		Client:    razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

// CreateOrder creates a new order in Razorpay and returns its id, the opaque
// reference the client completes the checkout against.
func (r *RazorpayClient) CreateOrder(amount int64, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amount, // minor units (paise)
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	order, err := r.Client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create failed: %w", err)
	}
	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay order response missing id")
	}
	return orderID, nil
}

// VerifyPaymentSignature verifies the checkout callback signature for the
// order+payment pair using the Razorpay SDK's verification algorithm.
func (r *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, r.keySecret)
}
