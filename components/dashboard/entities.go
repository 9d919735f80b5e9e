package dashboard

import "time"

// Snapshot is a read-only copy of the collections metric derivation consumes.
type Snapshot struct {
	Properties  []Property           `json:"properties"`
	Tenants     []Tenant             `json:"tenants"`
	Maintenance []MaintenanceRequest `json:"maintenance_requests"`
}

// FieldCount is a pseudo-field every record reports as 1, so series over it
// count records.
const FieldCount = "count"

// Record is anything bucketable by creation month with named numeric fields.
// Unknown or absent fields read as 0.
type Record interface {
	Created() time.Time
	Number(field string) float64
}

// Property is a managed building or lot.
type Property struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Units     int       `json:"units"`
	CreatedAt time.Time `json:"created_at"`
}

func (p Property) Created() time.Time { return p.CreatedAt }

func (p Property) Number(field string) float64 {
	switch field {
	case "units":
		return float64(p.Units)
	case FieldCount:
		return 1
	}
	return 0
}

// Tenant is a leaseholder with nested payments and communications.
type Tenant struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email,omitempty"`
	PropertyID     string          `json:"property_id,omitempty"`
	UnitNumber     string          `json:"unit_number,omitempty"`
	RentAmount     float64         `json:"rent_amount"`
	LeaseStart     *time.Time      `json:"lease_start,omitempty"`
	LeaseEnd       *time.Time      `json:"lease_end,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	Payments       []Payment       `json:"tenant_payments,omitempty"`
	Communications []Communication `json:"tenant_communications,omitempty"`
}

func (t Tenant) Created() time.Time { return t.CreatedAt }

func (t Tenant) Number(field string) float64 {
	switch field {
	case "rent_amount":
		return t.RentAmount
	case FieldCount:
		return 1
	}
	return 0
}

// Payment is a rent payment recorded against a tenant.
type Payment struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id,omitempty"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (p Payment) Created() time.Time { return p.CreatedAt }

func (p Payment) Number(field string) float64 {
	switch field {
	case "amount":
		return p.Amount
	case FieldCount:
		return 1
	}
	return 0
}

// MaintenanceRequest is a work request raised for a property or unit.
type MaintenanceRequest struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Issue      string    `json:"issue,omitempty"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority,omitempty"`
	PropertyID string    `json:"property_id,omitempty"`
	TenantID   string    `json:"tenant_id,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m MaintenanceRequest) Created() time.Time { return m.CreatedAt }

func (m MaintenanceRequest) Number(field string) float64 {
	switch field {
	case "amount":
		return m.Amount
	case FieldCount:
		return 1
	}
	return 0
}

// Communication is a message exchanged with a tenant.
type Communication struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id,omitempty"`
	Type         string    `json:"type,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Status       string    `json:"status"`
	Category     string    `json:"category,omitempty"`
	IsFromTenant bool      `json:"is_from_tenant"`
	CreatedAt    time.Time `json:"created_at"`
}

// FlattenPayments lifts nested tenant payments into one slice, stamping the
// owning tenant id on each entry.
func FlattenPayments(tenants []Tenant) []Payment {
	var out []Payment
	for _, tenant := range tenants {
		for _, payment := range tenant.Payments {
			if payment.TenantID == "" {
				payment.TenantID = tenant.ID
			}
			out = append(out, payment)
		}
	}
	return out
}
