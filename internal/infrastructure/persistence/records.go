package persistence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/printcore/backend/internal/domain/pod"
	"github.com/printcore/backend/internal/domain/rendition"
)

// renditionJobsTable overrides GORM's default pluralization for rendition.Job,
// which would otherwise land in a table called "jobs"
const renditionJobsTable = "rendition_jobs"

// orderStatusUpdateRecord is one row of an order's status history
type orderStatusUpdateRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID    uuid.UUID `gorm:"type:uuid;not null;index"`
	FromStatus string    `gorm:"size:24;not null"`
	ToStatus   string    `gorm:"size:24;not null"`
	Source     string    `gorm:"size:16;not null"`
	Message    string    `gorm:"size:512"`
	OccurredAt time.Time `gorm:"not null;index"`
}

func (orderStatusUpdateRecord) TableName() string {
	return "order_status_updates"
}

func newOrderStatusUpdateRecord(u pod.OrderStatusUpdate) orderStatusUpdateRecord {
	return orderStatusUpdateRecord{
		ID:         u.ID,
		OrderID:    u.OrderID,
		FromStatus: string(u.From),
		ToStatus:   string(u.To),
		Source:     string(u.Source),
		Message:    u.Message,
		OccurredAt: u.OccurredAt,
	}
}

func (r orderStatusUpdateRecord) toDomain() pod.OrderStatusUpdate {
	return pod.OrderStatusUpdate{
		ID:         r.ID,
		OrderID:    r.OrderID,
		From:       pod.OrderStatus(r.FromStatus),
		To:         pod.OrderStatus(r.ToStatus),
		Source:     pod.StatusSource(r.Source),
		Message:    r.Message,
		OccurredAt: r.OccurredAt,
	}
}

// shipmentRecord is one physical parcel of an order
type shipmentRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Carrier        string    `gorm:"size:64"`
	TrackingNumber string    `gorm:"size:128;not null"`
	TrackingURL    string    `gorm:"size:512"`
	ShippedAt      time.Time `gorm:"not null"`
}

func (shipmentRecord) TableName() string {
	return "order_shipments"
}

func newShipmentRecord(s pod.Shipment) shipmentRecord {
	return shipmentRecord{
		ID:             s.ID,
		OrderID:        s.OrderID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		TrackingURL:    s.TrackingURL,
		ShippedAt:      s.ShippedAt,
	}
}

func (r shipmentRecord) toDomain() pod.Shipment {
	return pod.Shipment{
		ID:             r.ID,
		OrderID:        r.OrderID,
		Carrier:        r.Carrier,
		TrackingNumber: r.TrackingNumber,
		TrackingURL:    r.TrackingURL,
		ShippedAt:      r.ShippedAt,
	}
}

// printSpecRecord stores a spec as an opaque JSON payload keyed by its
// caller-chosen ID. Specs are immutable, so the payload is write-once.
type printSpecRecord struct {
	ID        string    `gorm:"size:64;primary_key"`
	Payload   []byte    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (printSpecRecord) TableName() string {
	return "print_specs"
}

// AutoMigrate creates the fulfillment schema. Production deployments run the
// SQL migrations instead; this backs tests and local development.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&pod.PrintOrder{},
		&orderStatusUpdateRecord{},
		&shipmentRecord{},
		&printSpecRecord{},
		&rendition.Rendition{},
	); err != nil {
		return err
	}
	return db.Table(renditionJobsTable).AutoMigrate(&rendition.Job{})
}
