package notifications

import (
	"context"
	"errors"
	"testing"

	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/transactions"

	"github.com/9ssi7/exponent"
)

type fakePush struct {
	msgs []*exponent.Message
	err  error
}

func (f *fakePush) Publish(_ context.Context, msgs []*exponent.Message) ([]*exponent.MessageResponse, error) {
	f.msgs = append(f.msgs, msgs...)
	return nil, f.err
}

type fakeTokens map[string][]string

func (f fakeTokens) GetTokensByUserIDs(_ context.Context, ids []string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, id := range ids {
		out[id] = f[id]
	}
	return out, nil
}

type sentMail struct {
	template, email string
	data            any
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(templateFile, username, email string, data any) error {
	f.sent = append(f.sent, sentMail{templateFile, email, data})
	return f.err
}

func TestListingCheckedOutRental(t *testing.T) {
	push := &fakePush{}
	mail := &fakeMailer{}
	tokens := fakeTokens{"owner": {"ExponentPushToken[a]", "ExponentPushToken[a]", "ExponentPushToken[b]"}}
	n := NewNotifier(push, tokens, mail, "https://campusmart.app", nil)

	days := 3
	rec := &transactions.Record{
		Reference: "CM-X", Kind: listings.KindRental, ListingID: 9, Name: "Tent",
		OwnerID: "owner", DeliveryZone: "Woods", RentalDays: &days, TotalCents: 900,
	}
	n.ListingCheckedOut(context.Background(), rec, "owner@campus.edu")

	if len(push.msgs) != 2 {
		t.Fatalf("pushed %d messages, want 2 (deduped)", len(push.msgs))
	}
	if push.msgs[0].Data["event"] != string(ListingRented) || push.msgs[0].Data["listingId"] != "9" {
		t.Errorf("push data = %v", push.msgs[0].Data)
	}
	if len(mail.sent) != 1 || mail.sent[0].email != "owner@campus.edu" {
		t.Fatalf("mail sent = %+v", mail.sent)
	}
	data := mail.sent[0].data.(map[string]any)
	if data["Total"] != "9.00" || data["RentalDays"] != 3 {
		t.Errorf("mail data = %v", data)
	}
}

func TestNotifierIsBestEffort(t *testing.T) {
	push := &fakePush{err: errors.New("expo down")}
	mail := &fakeMailer{err: errors.New("smtp down")}
	n := NewNotifier(push, fakeTokens{"owner": {"ExponentPushToken[a]"}}, mail, "", nil)

	l := &listings.Listing{ID: 1, Kind: listings.KindSale, Name: "Lamp", OwnerID: "owner", OwnerEmail: "owner@campus.edu"}
	n.ListingApproved(context.Background(), l)
	n.ListingReviewed(context.Background(), l, 4)

	if len(push.msgs) != 2 || len(mail.sent) != 1 {
		t.Errorf("push = %d, mail = %d, want 2 and 1", len(push.msgs), len(mail.sent))
	}
}

func TestNotifierWithoutTokensOrTransports(t *testing.T) {
	l := &listings.Listing{ID: 1, Name: "Lamp", OwnerID: "nobody"}

	push := &fakePush{}
	NewNotifier(push, fakeTokens{}, nil, "", nil).ListingApproved(context.Background(), l)
	if len(push.msgs) != 0 {
		t.Errorf("pushed %d messages to a user without tokens", len(push.msgs))
	}

	NewNotifier(nil, nil, nil, "", nil).ListingApproved(context.Background(), l)
}

func TestFormatCents(t *testing.T) {
	for in, want := range map[int64]string{0: "0.00", 5: "0.05", 1250: "12.50", 100000: "1000.00"} {
		if got := formatCents(in); got != want {
			t.Errorf("formatCents(%d) = %q, want %q", in, got, want)
		}
	}
}
