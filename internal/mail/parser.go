// Package mail classifies host notification emails and extracts booking,
// payout and cancellation details with regular expressions. Mailbox access
// is someone else's job; this package only looks at message text.
package mail

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Message is one inbox message, already downloaded.
type Message struct {
	ID       string
	From     string
	Subject  string
	Body     string
	Received time.Time
}

// MailboxSource yields unseen notification messages. The IMAP implementation
// is wired at the edge; tests use an in-memory source.
type MailboxSource interface {
	FetchUnseen(ctx context.Context) ([]Message, error)
}

type Kind string

const (
	KindBookingConfirmation Kind = "booking_confirmation"
	KindPayout              Kind = "payout"
	KindCancellation        Kind = "cancellation"
	KindGuestMessage        Kind = "guest_message"
	KindUnknown             Kind = "unknown"
)

// subjectPatterns are checked in order; the first match wins.
var subjectPatterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindBookingConfirmation, regexp.MustCompile(`(?i)(?:Reservation confirmed|Booking confirmed|You have a new reservation)`)},
	{KindPayout, regexp.MustCompile(`(?i)(?:payout|payment.*(?:sent|processed|completed))`)},
	{KindCancellation, regexp.MustCompile(`(?i)(?:cancel|cancelled|cancellation)`)},
	{KindGuestMessage, regexp.MustCompile(`(?i)(?:message from|sent you a message)`)},
}

var (
	confirmationCodeRe = regexp.MustCompile(`(?i)confirmation code[:\s]*([A-Z0-9]{8,12})`)
	guestNameRe        = regexp.MustCompile(`(?:Guest|from)[:\s]+([A-Z][a-z]+ [A-Z][a-z]+)`)
	payoutAmountRe     = regexp.MustCompile(`\$\s*([\d,]+\.?\d*)`)
	checkinDateRe      = regexp.MustCompile(`(?i)(?:Check-in|Checkin|Arrival)[:\s]*(\w+ \d{1,2},?\s*\d{4})`)
	checkoutDateRe     = regexp.MustCompile(`(?i)(?:Check-out|Checkout|Departure)[:\s]*(\w+ \d{1,2},?\s*\d{4})`)
)

// Classify maps a subject line to a message kind.
func Classify(subject string) Kind {
	for _, p := range subjectPatterns {
		if p.re.MatchString(subject) {
			return p.kind
		}
	}
	return KindUnknown
}

// Confirmation is what a booking confirmation email yields. Any field may be
// missing.
type Confirmation struct {
	ConfirmationCode string
	GuestName        string
	Checkin          *time.Time
	Checkout         *time.Time
}

func ExtractConfirmation(body string) Confirmation {
	var c Confirmation
	if m := confirmationCodeRe.FindStringSubmatch(body); m != nil {
		c.ConfirmationCode = strings.ToUpper(m[1])
	}
	if m := guestNameRe.FindStringSubmatch(body); m != nil {
		c.GuestName = m[1]
	}
	if m := checkinDateRe.FindStringSubmatch(body); m != nil {
		c.Checkin = parseLongDate(m[1])
	}
	if m := checkoutDateRe.FindStringSubmatch(body); m != nil {
		c.Checkout = parseLongDate(m[1])
	}
	return c
}

// PayoutNotice is what a payout email yields.
type PayoutNotice struct {
	Amount           decimal.Decimal
	HasAmount        bool
	ConfirmationCode string
}

func ExtractPayout(body string) PayoutNotice {
	var p PayoutNotice
	if m := payoutAmountRe.FindStringSubmatch(body); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if amount, err := decimal.NewFromString(raw); err == nil {
			p.Amount = amount
			p.HasAmount = true
		}
	}
	if m := confirmationCodeRe.FindStringSubmatch(body); m != nil {
		p.ConfirmationCode = strings.ToUpper(m[1])
	}
	return p
}

// ExtractCancellationCode pulls the confirmation code out of a cancellation
// email, or returns "".
func ExtractCancellationCode(body string) string {
	if m := confirmationCodeRe.FindStringSubmatch(body); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}

var longDateLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
}

func parseLongDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	for _, layout := range longDateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
