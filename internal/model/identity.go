package model

const (
	// CredentialKey holds the bearer token issued by the storefront API.
	CredentialKey = "token"
	// UserRecordKey holds the JSON-encoded UserRecord of the signed-in user.
	UserRecordKey = "user"
	// CartKeyPrefix namespaces persisted carts by identity.
	CartKeyPrefix = "cart_"
	// GuestCartKey is the key anonymous sessions would use. It is never read or written.
	GuestCartKey = CartKeyPrefix + "guest"
)

// Identity is the stable string a user's persisted cart is namespaced by.
// The zero value means anonymous.
type Identity string

// Anonymous reports whether no identity was resolved.
func (i Identity) Anonymous() bool {
	return i == ""
}

// CartKey returns the storage key of the cart owned by identity.
func CartKey(i Identity) string {
	if i.Anonymous() {
		return GuestCartKey
	}
	return CartKeyPrefix + string(i)
}
