package resource

import (
	"fmt"

	"github.com/erazemk/blagajna/internal/model"
)

// CustomerConfig wires a customers list with duplicate-email checks.
func CustomerConfig(b Backend[model.Customer, model.CustomerInput]) Config[model.Customer, model.CustomerInput] {
	return Config[model.Customer, model.CustomerInput]{
		Backend:  b,
		ID:       func(c model.Customer) int64 { return c.ID },
		Validate: model.ValidateCustomer,
		Describe: func(c model.Customer) string { return fmt.Sprintf("customer %q", c.Name) },
	}
}

// ItemConfig wires an items list.
func ItemConfig(b Backend[model.Item, model.ItemInput]) Config[model.Item, model.ItemInput] {
	return Config[model.Item, model.ItemInput]{
		Backend: b,
		ID:      func(it model.Item) int64 { return it.ID },
		Validate: func(in model.ItemInput, _ []model.Item, _ int64) error {
			return model.ValidateItem(in)
		},
		Describe: func(it model.Item) string { return fmt.Sprintf("item %q", it.Name) },
	}
}

// SaleConfig wires a sales list. Sale payloads are validated by the composer.
func SaleConfig(b Backend[model.Sale, model.SaleInput]) Config[model.Sale, model.SaleInput] {
	return Config[model.Sale, model.SaleInput]{
		Backend:  b,
		ID:       func(s model.Sale) int64 { return s.ID },
		Describe: func(s model.Sale) string { return fmt.Sprintf("sale #%d", s.ID) },
	}
}

// UserConfig wires the admin users list.
func UserConfig(b Backend[model.User, model.UserInput]) Config[model.User, model.UserInput] {
	return Config[model.User, model.UserInput]{
		Backend: b,
		ID:      func(u model.User) int64 { return u.ID },
		Validate: func(in model.UserInput, _ []model.User, selfID int64) error {
			return model.ValidateUser(in, selfID == 0)
		},
		Describe: func(u model.User) string { return fmt.Sprintf("user %q", u.Username) },
	}
}

// StockUpdateConfig wires the stock-update history list. The backend only
// lists and creates stock updates.
func StockUpdateConfig(b Backend[model.StockUpdate, model.StockUpdateInput]) Config[model.StockUpdate, model.StockUpdateInput] {
	return Config[model.StockUpdate, model.StockUpdateInput]{
		Backend: b,
		ID:      func(u model.StockUpdate) int64 { return u.ID },
		Validate: func(in model.StockUpdateInput, _ []model.StockUpdate, _ int64) error {
			return model.ValidateStockUpdate(in)
		},
	}
}
