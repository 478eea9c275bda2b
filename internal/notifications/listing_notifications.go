package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/transactions"
	"campusmart/internal/mailer"

	"github.com/9ssi7/exponent"
	"go.uber.org/zap"
)

type ListingEvent string

const (
	ListingApproved ListingEvent = "APPROVED"
	ListingSold     ListingEvent = "SOLD"
	ListingRented   ListingEvent = "RENTED"
	ListingReviewed ListingEvent = "REVIEWED"
)

var ErrNoPushTokens = errors.New("no push tokens")

// Notifier tells listing owners about things that happened to their
// listings. Every method is best effort: failures are logged, not returned.
type Notifier struct {
	push   PushSender
	tokens TokenStore
	mail   mailer.Client
	appURL string
	logger *zap.SugaredLogger
}

func NewNotifier(push PushSender, tokens TokenStore, mail mailer.Client, appURL string, logger *zap.SugaredLogger) *Notifier {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Notifier{push: push, tokens: tokens, mail: mail, appURL: appURL, logger: logger}
}

func (n *Notifier) listingURL(id int64) string {
	return fmt.Sprintf("%s/listings/%d", n.appURL, id)
}

func formatCents(c int64) string {
	return fmt.Sprintf("%d.%02d", c/100, c%100)
}

func (n *Notifier) ListingApproved(ctx context.Context, l *listings.Listing) {
	err := n.sendPush(ctx, l.OwnerID, ListingApproved, l.ID,
		"Listing approved",
		fmt.Sprintf("%q is now live on CampusMart 🎉", l.Name))
	n.logPushErr(err, ListingApproved, l.ID)

	if n.mail != nil && l.OwnerEmail != "" {
		data := map[string]any{
			"Username":    l.OwnerEmail,
			"ListingName": l.Name,
			"Kind":        string(l.Kind),
			"ListingURL":  n.listingURL(l.ID),
		}
		if err := n.mail.Send(mailer.ListingApprovedTemplate, l.OwnerEmail, l.OwnerEmail, data); err != nil {
			n.logger.Errorw("approval email failed", "listing_id", l.ID, "error", err)
		}
	}
}

// ListingCheckedOut notifies the owner of a record's listing.
func (n *Notifier) ListingCheckedOut(ctx context.Context, rec *transactions.Record, ownerEmail string) {
	event := ListingSold
	body := fmt.Sprintf("%q was sold. Meet the buyer at %s.", rec.Name, rec.DeliveryZone)
	days := 0
	if rec.Kind == listings.KindRental {
		event = ListingRented
		if rec.RentalDays != nil {
			days = *rec.RentalDays
		}
		body = fmt.Sprintf("%q was rented for %d day(s). Meet the renter at %s.", rec.Name, days, rec.DeliveryZone)
	}

	err := n.sendPush(ctx, rec.OwnerID, event, rec.ListingID, "Your listing found a taker", body)
	n.logPushErr(err, event, rec.ListingID)

	if n.mail != nil && ownerEmail != "" {
		data := map[string]any{
			"Username":     ownerEmail,
			"ListingName":  rec.Name,
			"Kind":         string(rec.Kind),
			"Reference":    rec.Reference,
			"DeliveryZone": rec.DeliveryZone,
			"RentalDays":   days,
			"Total":        formatCents(rec.TotalCents),
		}
		if err := n.mail.Send(mailer.ListingSoldTemplate, ownerEmail, ownerEmail, data); err != nil {
			n.logger.Errorw("checkout email failed", "listing_id", rec.ListingID, "reference", rec.Reference, "error", err)
		}
	}
}

func (n *Notifier) ListingReviewed(ctx context.Context, l *listings.Listing, rating int) {
	err := n.sendPush(ctx, l.OwnerID, ListingReviewed, l.ID,
		"New review",
		fmt.Sprintf("%q got a %d/5 review", l.Name, rating))
	n.logPushErr(err, ListingReviewed, l.ID)
}

func (n *Notifier) logPushErr(err error, event ListingEvent, listingID int64) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNoPushTokens):
		n.logger.Debugw("push skipped", "event", event, "listing_id", listingID, "reason", err)
	default:
		n.logger.Errorw("push failed", "event", event, "listing_id", listingID, "error", err)
	}
}

func (n *Notifier) sendPush(ctx context.Context, userID string, event ListingEvent, listingID int64, title, body string) error {
	if n.push == nil || n.tokens == nil {
		return ErrNoPushTokens
	}

	tokensMap, err := n.tokens.GetTokensByUserIDs(ctx, []string{userID})
	if err != nil {
		return err
	}
	tokens := dedupe(tokensMap[userID])
	if len(tokens) == 0 {
		return ErrNoPushTokens
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			//the data field drives deep linking in the app
			Data: map[string]string{
				"type":      "listing",
				"event":     string(event),
				"listingId": strconv.FormatInt(listingID, 10),
				"screen":    "listing-detail",
			},
		})
	}

	_, err = n.push.Publish(ctx, msgs)
	return err
}
