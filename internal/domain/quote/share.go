package quote

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone returns the number in E.164 digits without the leading plus,
// which is the form wa.me expects. Numbers without a country code are read
// in defaultRegion.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPhone
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}

func ShareText(q *Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Quote %s", q.Number)
	if q.CustomerName != "" {
		fmt.Fprintf(&b, " for %s", q.CustomerName)
	}
	fmt.Fprintf(&b, "\nTotal: %s", FormatMoney(q.Total))
	if !q.ExpiryDate.IsZero() {
		fmt.Fprintf(&b, "\nValid until: %s", q.ExpiryDate.Format(DateLayout))
	}
	return b.String()
}

func WhatsAppLink(q *Quote, phone, defaultRegion string) (string, error) {
	digits, err := NormalizePhone(phone, defaultRegion)
	if err != nil {
		return "", err
	}
	return "https://wa.me/" + digits + "?text=" + url.QueryEscape(ShareText(q)), nil
}
