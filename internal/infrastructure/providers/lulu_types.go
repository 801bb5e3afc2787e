package providers

// Lulu print-job status names as they appear on the wire
const (
	LuluStatusCreated           = "CREATED"
	LuluStatusUnpaid            = "UNPAID"
	LuluStatusPaymentInProgress = "PAYMENT_IN_PROGRESS"
	LuluStatusProductionReady   = "PRODUCTION_READY"
	LuluStatusProductionDelayed = "PRODUCTION_DELAYED"
	LuluStatusInProduction      = "IN_PRODUCTION"
	LuluStatusShipped           = "SHIPPED"
	LuluStatusDelivered         = "DELIVERED"
	LuluStatusRejected          = "REJECTED"
	LuluStatusCanceled          = "CANCELED"
	LuluStatusError             = "ERROR"
)

// LuluShippingAddress is the address shape the Lulu API expects
type LuluShippingAddress struct {
	Name        string `json:"name"`
	StreetOne   string `json:"street1"`
	StreetTwo   string `json:"street2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code,omitempty"`
	PostalCode  string `json:"postcode"`
	CountryCode string `json:"country_code"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Email       string `json:"email,omitempty"`
}

// LuluLineItem describes one item of a print job or cost calculation
type LuluLineItem struct {
	PodPackageID  string `json:"pod_package_id"`
	PageCount     int    `json:"page_count"`
	Quantity      int    `json:"quantity"`
	Title         string `json:"title,omitempty"`
	InteriorURL   string `json:"interior_source_url,omitempty"`
	CoverURL      string `json:"cover_source_url,omitempty"`
	ExternalRefID string `json:"external_id,omitempty"`
}

// LuluCostRequest is the body for POST /print-job-cost-calculations/
type LuluCostRequest struct {
	LineItems       []LuluLineItem      `json:"line_items"`
	ShippingAddress LuluShippingAddress `json:"shipping_address"`
	ShippingLevel   string              `json:"shipping_level"`
}

// LuluCostResponse is the cost calculation answer. Lulu sends monetary
// amounts as decimal strings.
type LuluCostResponse struct {
	Currency          string             `json:"currency"`
	LineItemCosts     []LuluLineItemCost `json:"line_item_costs"`
	ShippingCost      LuluCostEntry      `json:"shipping_cost"`
	FulfillmentCost   LuluCostEntry      `json:"fulfillment_cost"`
	TotalTax          string             `json:"total_tax"`
	TotalCostInclTax  string             `json:"total_cost_incl_tax"`
	TotalCostExclTax  string             `json:"total_cost_excl_tax"`
	FabricationDays   int                `json:"estimated_fabrication_days"`
	ShippingDays      int                `json:"estimated_shipping_days"`
	ValiditySeconds   int                `json:"validity_seconds"`
	EstimatedShipDate string             `json:"estimated_ship_date,omitempty"`
}

// LuluLineItemCost is the per-item portion of a cost calculation
type LuluLineItemCost struct {
	CostExclTax string `json:"cost_excl_tax"`
	CostInclTax string `json:"cost_incl_tax"`
	Quantity    int    `json:"quantity"`
	UnitCost    string `json:"unit_cost_excl_tax"`
}

// LuluCostEntry is a single cost figure with its tax split out
type LuluCostEntry struct {
	CostExclTax string `json:"cost_excl_tax"`
	TaxAmount   string `json:"tax_amount"`
}

// LuluPrintJobRequest is the body for POST /print-jobs/
type LuluPrintJobRequest struct {
	ExternalID      string              `json:"external_id"`
	LineItems       []LuluLineItem      `json:"line_items"`
	ShippingAddress LuluShippingAddress `json:"shipping_address"`
	ShippingLevel   string              `json:"shipping_level"`
	ContactEmail    string              `json:"contact_email,omitempty"`
}

// LuluPrintJobResponse is the print job as the Lulu API returns it
type LuluPrintJobResponse struct {
	ID         int64             `json:"id"`
	ExternalID string            `json:"external_id"`
	Status     LuluStatusDetail  `json:"status"`
	Shipments  []LuluShipment    `json:"shipments,omitempty"`
	Errors     []LuluDetailError `json:"errors,omitempty"`
}

// LuluStatusDetail carries the status name plus an optional vendor message
type LuluStatusDetail struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
}

// LuluShipment is tracking information for a dispatched print job
type LuluShipment struct {
	Carrier        string `json:"carrier_name"`
	TrackingID     string `json:"tracking_id"`
	TrackingURL    string `json:"tracking_urls,omitempty"`
	ShippedAtEpoch int64  `json:"shipped_at,omitempty"`
}

// LuluDetailError is one vendor-side validation failure
type LuluDetailError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LuluWebhookPayload is the body of a print-job status webhook delivery
type LuluWebhookPayload struct {
	// EventID uniquely identifies the delivery for deduplication
	EventID string `json:"event_id"`
	Topic   string `json:"topic"`
	Data    *LuluPrintJobResponse `json:"data"`
}

// LuluErrorResponse is the generic error envelope
type LuluErrorResponse struct {
	Detail string `json:"detail"`
}
