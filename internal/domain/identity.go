package domain

import "time"

// Role is the marketplace role carried by an authenticated caller.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller, passed explicitly into every service call.
type Identity struct {
	UserID string
	Role   Role
}

// CanView reports whether the caller may read the order.
func (id Identity) CanView(o Order) bool {
	if id.Role == RoleAdmin {
		return true
	}
	return id.UserID != "" && (id.UserID == o.BuyerID || id.UserID == o.SellerID)
}

// Profile is a marketplace participant.
type Profile struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delivery is the contact data copied onto orders and sent to the processor.
func (p Profile) Delivery() DeliveryInfo {
	return DeliveryInfo{Name: p.FullName, Email: p.Email, Address: p.Address, Phone: p.Phone}
}
