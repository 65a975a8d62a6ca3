package user

import (
	"time"

	"github.com/gofrs/uuid"
)

type Role string

const (
	RoleExporter     Role = "exporter"
	RoleManufacturer Role = "manufacturer"
	RoleAdmin        Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// User is owned by the identity provider; this service only reads it.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Machine is production equipment registered by a manufacturer.
type Machine struct {
	ID             uuid.UUID `json:"id"`
	ManufacturerID uuid.UUID `json:"manufacturerId"`
	Name           string    `json:"name"`
	MachineType    string    `json:"machineType"`
	CreatedAt      time.Time `json:"createdAt"`
}
