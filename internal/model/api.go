package model

import "context"

// StorefrontAPI is the contract consumed from the external storefront REST API.
type StorefrontAPI interface {
	Login(ctx context.Context, email, password string) (Credentials, error)
	Logout(ctx context.Context, token string) error
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	PlaceOrder(ctx context.Context, token string, draft OrderDraft) (Order, error)
	ListOrders(ctx context.Context, token string) ([]Order, error)
}
