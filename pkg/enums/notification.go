package enums

import "fmt"

// NotificationKind names a purchase email template on the mail service.
type NotificationKind string

const (
	NotificationPurchaseInProcess NotificationKind = "purchase_in_process"
	NotificationPurchaseSucceeded NotificationKind = "purchase_succeeded"
	NotificationPurchaseFailed    NotificationKind = "purchase_failed"
)

func (n NotificationKind) IsValid() bool {
	switch n {
	case NotificationPurchaseInProcess, NotificationPurchaseSucceeded, NotificationPurchaseFailed:
		return true
	}
	return false
}

func ParseNotificationKind(value string) (NotificationKind, error) {
	kind := NotificationKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid notification kind %q", value)
	}
	return kind, nil
}

// UnmarshalText rejects template names the mail service does not know.
func (n *NotificationKind) UnmarshalText(text []byte) error {
	kind, err := ParseNotificationKind(string(text))
	if err != nil {
		return err
	}
	*n = kind
	return nil
}
