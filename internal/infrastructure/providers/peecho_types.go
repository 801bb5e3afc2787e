package providers

// Peecho order states as they appear on the wire
const (
	PeechoStateOrderReceived = "ORDER_RECEIVED"
	PeechoStatePreflightOK   = "PREFLIGHT_OK"
	PeechoStateOnHold        = "ON_HOLD"
	PeechoStatePrinting      = "PRINTING"
	PeechoStateShipped       = "SHIPPED"
	PeechoStateDelivered     = "DELIVERED"
	PeechoStateCancelled     = "CANCELLED"
	PeechoStateRejected      = "REJECTED"
	PeechoStateError         = "ERROR"
)

// PeechoAddress is the address shape the Peecho API expects
type PeechoAddress struct {
	RecipientName string `json:"recipientName"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2,omitempty"`
	City          string `json:"city"`
	Region        string `json:"region,omitempty"`
	ZipCode       string `json:"zipCode"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	EmailAddress  string `json:"emailAddress,omitempty"`
}

// PeechoProduct describes the item being quoted or ordered. Dimensions are
// in millimeters; Peecho thinks metric.
type PeechoProduct struct {
	OfferingID   string `json:"offeringId"`
	WidthMm      int    `json:"widthMm"`
	HeightMm     int    `json:"heightMm"`
	NumberOfPages int   `json:"numberOfPages"`
	Quantity     int    `json:"quantity"`
	ContentURL   string `json:"contentUrl,omitempty"`
	CoverURL     string `json:"coverUrl,omitempty"`
}

// PeechoQuoteRequest is the body for POST /rest/v3/quotes
type PeechoQuoteRequest struct {
	MerchantID      string        `json:"merchantId"`
	Product         PeechoProduct `json:"product"`
	ShippingAddress PeechoAddress `json:"shippingAddress"`
	DeliveryType    string        `json:"deliveryType"`
}

// PeechoQuoteResponse is the quote answer. Amounts are numeric, in major
// currency units.
type PeechoQuoteResponse struct {
	Currency         string  `json:"currency"`
	UnitPrice        float64 `json:"unitPrice"`
	ProductPrice     float64 `json:"productPrice"`
	ShippingPrice    float64 `json:"shippingPrice"`
	HandlingFee      float64 `json:"handlingFee"`
	Vat              float64 `json:"vat"`
	ProductionDays   int     `json:"productionDays"`
	DeliveryDays     int     `json:"deliveryDays"`
	ValidUntilEpoch  int64   `json:"validUntil"`
	Producible       bool    `json:"producible"`
	RejectionMessage string  `json:"rejectionMessage,omitempty"`
}

// PeechoOrderRequest is the body for POST /rest/v3/orders
type PeechoOrderRequest struct {
	MerchantID        string        `json:"merchantId"`
	MerchantReference string        `json:"merchantReference"`
	Product           PeechoProduct `json:"product"`
	ShippingAddress   PeechoAddress `json:"shippingAddress"`
	DeliveryType      string        `json:"deliveryType"`
}

// PeechoOrderResponse is the order as the Peecho API returns it
type PeechoOrderResponse struct {
	OrderID           string          `json:"orderId"`
	MerchantReference string          `json:"merchantReference"`
	State             string          `json:"state"`
	StateMessage      string          `json:"stateMessage,omitempty"`
	Shipping          *PeechoShipping `json:"shipping,omitempty"`
}

// PeechoShipping is tracking information for a dispatched order
type PeechoShipping struct {
	Carrier      string `json:"carrier"`
	TrackingCode string `json:"trackingCode"`
	TrackingURL  string `json:"trackingUrl,omitempty"`
}

// PeechoCancelResponse is the answer to a cancellation request
type PeechoCancelResponse struct {
	Cancelled bool   `json:"cancelled"`
	Reason    string `json:"reason,omitempty"`
}

// PeechoWebhookPayload is the body of an order state webhook delivery
type PeechoWebhookPayload struct {
	// NotificationID uniquely identifies the delivery for deduplication
	NotificationID string          `json:"notificationId"`
	OrderID        string          `json:"orderId"`
	State          string          `json:"state"`
	StateMessage   string          `json:"stateMessage,omitempty"`
	Shipping       *PeechoShipping `json:"shipping,omitempty"`
}

// PeechoErrorResponse is the generic error envelope
type PeechoErrorResponse struct {
	Message string `json:"message"`
}
