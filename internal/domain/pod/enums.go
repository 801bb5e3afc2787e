package pod

// ProviderCode identifies a print-on-demand vendor
type ProviderCode string

const (
	// ProviderLulu is the Lulu print API
	ProviderLulu ProviderCode = "LULU"
	// ProviderPeecho is the Peecho print API
	ProviderPeecho ProviderCode = "PEECHO"
)

// IsValid checks if the ProviderCode is a valid value
func (c ProviderCode) IsValid() bool {
	switch c {
	case ProviderLulu, ProviderPeecho:
		return true
	}
	return false
}

// String returns the string representation of ProviderCode
func (c ProviderCode) String() string {
	return string(c)
}

// ProductType represents the kind of physical product being produced
type ProductType string

const (
	ProductTypeBook      ProductType = "BOOK"
	ProductTypeNotebook  ProductType = "NOTEBOOK"
	ProductTypePhotoBook ProductType = "PHOTO_BOOK"
)

// IsValid checks if the ProductType is a valid value
func (p ProductType) IsValid() bool {
	switch p {
	case ProductTypeBook, ProductTypeNotebook, ProductTypePhotoBook:
		return true
	}
	return false
}

// String returns the string representation of ProductType
func (p ProductType) String() string {
	return string(p)
}

// Binding represents how the pages are held together
type Binding string

const (
	BindingPerfect  Binding = "PERFECT"   // glued softcover
	BindingSaddle   Binding = "SADDLE"    // stapled through the fold
	BindingCasewrap Binding = "CASEWRAP"  // hardcover
	BindingCoil     Binding = "COIL"      // plastic coil
	BindingSpiral   Binding = "SPIRAL"    // metal spiral
	BindingWireO    Binding = "WIRE_O"    // double-loop wire
)

// IsValid checks if the Binding is a valid value
func (b Binding) IsValid() bool {
	switch b {
	case BindingPerfect, BindingSaddle, BindingCasewrap, BindingCoil, BindingSpiral, BindingWireO:
		return true
	}
	return false
}

// String returns the string representation of Binding
func (b Binding) String() string {
	return string(b)
}

// IsSpiralFamily returns true for bindings that punch holes through the
// binding edge (coil, spiral, wire-o). These share geometry constraints.
func (b Binding) IsSpiralFamily() bool {
	switch b {
	case BindingCoil, BindingSpiral, BindingWireO:
		return true
	}
	return false
}

// PaperType represents the interior paper stock
type PaperType string

const (
	Paper60lbCream  PaperType = "60LB_CREAM"
	Paper60lbWhite  PaperType = "60LB_WHITE"
	Paper80lbCoated PaperType = "80LB_COATED"
	Paper100lbPhoto PaperType = "100LB_PHOTO"
)

// IsValid checks if the PaperType is a valid value
func (p PaperType) IsValid() bool {
	switch p {
	case Paper60lbCream, Paper60lbWhite, Paper80lbCoated, Paper100lbPhoto:
		return true
	}
	return false
}

// String returns the string representation of PaperType
func (p PaperType) String() string {
	return string(p)
}

// PagesPerInch returns the bulk of the stock, used for spine width
func (p PaperType) PagesPerInch() float64 {
	switch p {
	case Paper60lbCream:
		return 444
	case Paper60lbWhite:
		return 472
	case Paper80lbCoated:
		return 420
	case Paper100lbPhoto:
		return 310
	default:
		return 444
	}
}

// ColorSpace represents the color mode of the production files
type ColorSpace string

const (
	ColorSpaceCMYK      ColorSpace = "CMYK"
	ColorSpaceRGB       ColorSpace = "RGB"
	ColorSpaceGrayscale ColorSpace = "GRAYSCALE"
)

// IsValid checks if the ColorSpace is a valid value
func (c ColorSpace) IsValid() bool {
	switch c {
	case ColorSpaceCMYK, ColorSpaceRGB, ColorSpaceGrayscale:
		return true
	}
	return false
}

// String returns the string representation of ColorSpace
func (c ColorSpace) String() string {
	return string(c)
}

// CoverFinish represents the cover lamination
type CoverFinish string

const (
	CoverFinishGloss CoverFinish = "GLOSS"
	CoverFinishMatte CoverFinish = "MATTE"
)

// IsValid checks if the CoverFinish is a valid value
func (f CoverFinish) IsValid() bool {
	switch f {
	case CoverFinishGloss, CoverFinishMatte:
		return true
	}
	return false
}

// String returns the string representation of CoverFinish
func (f CoverFinish) String() string {
	return string(f)
}

// ShippingLevel represents the delivery speed class
type ShippingLevel string

const (
	ShippingMail      ShippingLevel = "MAIL"
	ShippingGround    ShippingLevel = "GROUND"
	ShippingExpedited ShippingLevel = "EXPEDITED"
	ShippingExpress   ShippingLevel = "EXPRESS"
)

// IsValid checks if the ShippingLevel is a valid value
func (s ShippingLevel) IsValid() bool {
	switch s {
	case ShippingMail, ShippingGround, ShippingExpedited, ShippingExpress:
		return true
	}
	return false
}

// String returns the string representation of ShippingLevel
func (s ShippingLevel) String() string {
	return string(s)
}

// OrderStatus represents the canonical lifecycle of a print order
type OrderStatus string

const (
	// StatusPending indicates the order exists locally but has not been sent to a vendor
	StatusPending OrderStatus = "PENDING"
	// StatusSubmitted indicates the vendor has received the order
	StatusSubmitted OrderStatus = "SUBMITTED"
	// StatusAccepted indicates the vendor validated the files and accepted the job
	StatusAccepted OrderStatus = "ACCEPTED"
	// StatusOnHold indicates the vendor paused the order (payment, file review)
	StatusOnHold OrderStatus = "ON_HOLD"
	// StatusInProduction indicates the item is being manufactured
	StatusInProduction OrderStatus = "IN_PRODUCTION"
	// StatusInTransit indicates the item has shipped
	StatusInTransit OrderStatus = "IN_TRANSIT"
	// StatusDelivered indicates the carrier confirmed delivery
	StatusDelivered OrderStatus = "DELIVERED"
	// StatusCancelled indicates the order was cancelled before completion
	StatusCancelled OrderStatus = "CANCELLED"
	// StatusFailed indicates the order failed and will not be fulfilled
	StatusFailed OrderStatus = "FAILED"
)

// IsValid checks if the OrderStatus is a valid value
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusAccepted, StatusOnHold,
		StatusInProduction, StatusInTransit, StatusDelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true for states the order can never leave
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// rank orders the happy-path states so that forward progress is comparable.
// OnHold shares the rank of Accepted: it is a lateral pause, not progress.
func (s OrderStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusSubmitted:
		return 1
	case StatusAccepted, StatusOnHold:
		return 2
	case StatusInProduction:
		return 3
	case StatusInTransit:
		return 4
	case StatusDelivered:
		return 5
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving to target is a legal forward
// transition. Vendors may skip intermediate states (a fast vendor can go
// straight from SUBMITTED to IN_TRANSIT) but may never move backward.
// A stale update that fails this check is dropped, not an error.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch target {
	case StatusCancelled, StatusFailed:
		return true
	case StatusOnHold:
		return s == StatusSubmitted || s == StatusAccepted
	default:
		return target.rank() > s.rank()
	}
}
