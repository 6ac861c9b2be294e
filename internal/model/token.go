package model

// TokenManager issues and validates the bearer tokens of the dev storefront API.
type TokenManager interface {
	GenerateAccessToken(userID int64) (string, error)
	ParseAccessToken(token string) (int64, error)
}
