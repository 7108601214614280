package tenant

import "time"

// Status is the lifecycle state of a hosted site.  Only StatusActive is
// routable; every other state is treated as "not found" for routing, with
// provisioning surfacing a distinct diagnostic response at the gateway.
type Status string

const (
	StatusActive       Status = "active"
	StatusProvisioning Status = "provisioning"
	StatusSuspended    Status = "suspended"
	StatusArchived     Status = "archived"
)

// ProvisioningMarker is the sentinel database descriptor written by the
// provisioning job before the tenant database exists.  The gateway answers
// 503 for such tenants instead of forwarding a request that cannot be
// served yet.
const ProvisioningMarker = "provisioning"

// Record mirrors one row in the control-plane `tenant` table.  The gateway
// only reads it; creation and updates happen in the administrative system.
// DatabaseURL is an opaque secret forwarded to the upstream, never parsed.
type Record struct {
	ID          string    `db:"id"`
	Subdomain   string    `db:"subdomain"`
	Name        string    `db:"name"`
	Status      Status    `db:"status"`
	Type        string    `db:"type"`
	DatabaseURL string    `db:"database_url"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Provisioning reports whether the tenant's backing database is still
// being set up.
func (r *Record) Provisioning() bool {
	return r.DatabaseURL == "" || r.DatabaseURL == ProvisioningMarker
}
