package models

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&UserShippingAddress{},
		&Publication{},
		&PublicationItem{},
		&ShoppingCartPointer{},
		&Coupon{},
		&Transaction{},
		&TransactionPointer{},
	}
}
