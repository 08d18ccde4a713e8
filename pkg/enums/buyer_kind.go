package enums

import "fmt"

// BuyerKind distinguishes authenticated buyers from guest checkouts.
type BuyerKind string

const (
	BuyerKindRegistered BuyerKind = "registered"
	BuyerKindGuest      BuyerKind = "guest"
)

// BuyerKinds lists every buyer variant in sweep order.
var BuyerKinds = []BuyerKind{BuyerKindRegistered, BuyerKindGuest}

func (k BuyerKind) String() string {
	return string(k)
}

func (k BuyerKind) IsValid() bool {
	return k == BuyerKindRegistered || k == BuyerKindGuest
}

func ParseBuyerKind(value string) (BuyerKind, error) {
	for _, candidate := range BuyerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid buyer kind %q", value)
}
