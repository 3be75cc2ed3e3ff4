package mail

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		subject string
		want    Kind
	}{
		{"Reservation confirmed - Jordan arrives Sep 10", KindBookingConfirmation},
		{"You have a new reservation!", KindBookingConfirmation},
		{"A payout of $1,234.56 was sent", KindPayout},
		{"Your payment was processed", KindPayout},
		{"Reservation cancelled by guest", KindCancellation},
		{"Jordan sent you a message", KindGuestMessage},
		{"Weekly hosting newsletter", KindUnknown},
	}
	for _, tc := range cases {
		if got := Classify(tc.subject); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.subject, got, tc.want)
		}
	}
}

func TestClassifyConfirmationBeatsCancellation(t *testing.T) {
	// "free cancellation" in a confirmation subject must not reclassify it.
	subject := "Reservation confirmed - free cancellation until Sep 1"
	if got := Classify(subject); got != KindBookingConfirmation {
		t.Fatalf("Classify(%q) = %s, want booking_confirmation", subject, got)
	}
}

func TestExtractConfirmation(t *testing.T) {
	body := "Guest: Jordan Lee\n" +
		"Confirmation code: HMABC12345\n" +
		"Check-in: September 10, 2026\n" +
		"Check-out: September 14, 2026\n"

	c := ExtractConfirmation(body)
	if c.ConfirmationCode != "HMABC12345" {
		t.Errorf("code = %q", c.ConfirmationCode)
	}
	if c.GuestName != "Jordan Lee" {
		t.Errorf("guest = %q", c.GuestName)
	}
	wantIn := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	if c.Checkin == nil || !c.Checkin.Equal(wantIn) {
		t.Errorf("checkin = %v, want %v", c.Checkin, wantIn)
	}
	wantOut := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	if c.Checkout == nil || !c.Checkout.Equal(wantOut) {
		t.Errorf("checkout = %v, want %v", c.Checkout, wantOut)
	}
}

func TestExtractConfirmationPartialBody(t *testing.T) {
	c := ExtractConfirmation("Thanks for hosting! No structured data here.")
	if c.ConfirmationCode != "" || c.GuestName != "" || c.Checkin != nil || c.Checkout != nil {
		t.Fatalf("expected empty extraction, got %+v", c)
	}
}

func TestExtractPayout(t *testing.T) {
	body := "Your payout of $1,234.56 for confirmation code: HMABC12345 is on its way."
	p := ExtractPayout(body)
	if !p.HasAmount {
		t.Fatal("amount not found")
	}
	if !p.Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("amount = %s", p.Amount)
	}
	if p.ConfirmationCode != "HMABC12345" {
		t.Errorf("code = %q", p.ConfirmationCode)
	}
}

func TestExtractPayoutWithoutAmount(t *testing.T) {
	p := ExtractPayout("A payout is on its way to your bank account.")
	if p.HasAmount {
		t.Fatalf("unexpected amount %s", p.Amount)
	}
}

func TestExtractCancellationCode(t *testing.T) {
	if got := ExtractCancellationCode("confirmation code: hmabc12345 was cancelled"); got != "HMABC12345" {
		t.Errorf("code = %q, want uppercased", got)
	}
	if got := ExtractCancellationCode("no code here"); got != "" {
		t.Errorf("code = %q, want empty", got)
	}
}
