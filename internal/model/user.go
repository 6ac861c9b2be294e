package model

// UserRecord is the structured user record kept in storage next to the token.
type UserRecord struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Credentials is the result of a successful login against the storefront API.
type Credentials struct {
	Token string     `json:"token"`
	User  UserRecord `json:"user"`
}
