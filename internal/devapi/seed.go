package devapi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dtroode/pastry-storefront/internal/model"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "password"

// Seed fills c with demo accounts and a pastry catalog.
func Seed(c *Catalog) error {
	users := []model.UserRecord{
		{ID: 1, Name: "Back Office", Email: "admin@pastry.test", Role: "admin"},
		{ID: 7, Name: "Bistro Nord", Email: "bistro@pastry.test", Role: "customer"},
		{ID: 42, Name: "Cafe Aurora", Email: "aurora@pastry.test", Role: "customer"},
	}
	for _, u := range users {
		if err := c.AddUser(u, SeedPassword); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}

	products := []model.Product{
		{ID: 1, Name: "Butter croissant", Price: decimal.RequireFromString("1.20"), Stock: 200, Image: "croissant.jpg", Category: "viennoiserie"},
		{ID: 2, Name: "Pain au chocolat", Price: decimal.RequireFromString("1.45"), Stock: 150, Image: "pain-au-chocolat.jpg", Category: "viennoiserie"},
		{ID: 3, Name: "Almond croissant", Price: decimal.RequireFromString("1.90"), Stock: 60, Image: "almond-croissant.jpg", Category: "viennoiserie"},
		{ID: 4, Name: "Chocolate eclair", Price: decimal.RequireFromString("2.30"), Stock: 40, Image: "eclair.jpg", Category: "patisserie"},
		{ID: 5, Name: "Lemon tart", Price: decimal.RequireFromString("3.10"), Stock: 24, Image: "lemon-tart.jpg", Category: "patisserie"},
		{ID: 6, Name: "Canele", Price: decimal.RequireFromString("1.75"), Stock: 0, Image: "canele.jpg", Category: "patisserie"},
	}
	for _, p := range products {
		c.AddProduct(p)
	}
	return nil
}
