package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"campusmart/internal/domain/carts"
	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/storage"
	"campusmart/internal/domain/transactions"
)

type addCartItemPayload struct {
	ListingID    int64  `json:"listing_id" validate:"required,gt=0"`
	DeliveryZone string `json:"delivery_zone" validate:"omitempty,deliveryzone"`
	RentalDays   int    `json:"rental_days" validate:"omitempty,min=1,max=365"`
}

type updateCartItemPayload struct {
	DeliveryZone *string `json:"delivery_zone" validate:"omitempty,deliveryzone"`
	RentalDays   *int    `json:"rental_days" validate:"omitempty,min=1,max=365"`
}

// CheckoutResult lists one record per cart line.
type CheckoutResult struct {
	Records    []*transactions.Record `json:"records"`
	TotalCents int64                  `json:"total_cents"`
}

var (
	errEmptyCart      = errors.New("cart is empty")
	errOwnListing     = errors.New("you cannot buy or rent your own listing")
	errZoneRequired   = errors.New("choose a delivery zone for every item")
	errZoneNotOffered = errors.New("the listing is not offered in that delivery zone")
)

// checkCartItem makes sure it fits l for buyerID.
func checkCartItem(l *listings.Listing, it *carts.Item, buyerID string) error {
	if l.OwnerID == buyerID {
		return errOwnListing
	}
	if it.DeliveryZone != "" && !slices.Contains(l.DeliveryZones, it.DeliveryZone) {
		return fmt.Errorf("%w: %s", errZoneNotOffered, it.DeliveryZone)
	}
	if l.Kind == listings.KindSale {
		it.RentalDays = 0
	} else if it.RentalDays < 1 {
		it.RentalDays = 1
	}
	return nil
}

func (app *application) cartLineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, carts.ErrItemNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, errOwnListing), errors.Is(err, errZoneNotOffered), errors.Is(err, errZoneRequired), errors.Is(err, errEmptyCart):
		app.badRequestResponse(w, r, err)
	default:
		app.listingLookupError(w, r, err)
	}
}

// getCartHandler godoc
//
//	@Summary		Get my cart
//	@Description	Cart lines priced against current listings. Lines whose listing is gone or unavailable are marked and left out of the total.
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	carts.CartView
//	@Failure		401	{object}	error
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := app.store.Carts.Items(ctx, user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	byID := make(map[int64]*listings.Listing, len(items))
	for _, it := range items {
		l, err := app.store.Listings.GetByID(ctx, it.ListingID)
		if errors.Is(err, listings.ErrNotFound) {
			continue
		}
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		byID[l.ID] = l
	}

	app.jsonResponse(w, http.StatusOK, carts.BuildView(items, byID))
}

// addCartItemHandler godoc
//
//	@Summary	Add a listing to my cart
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Param		payload	body		addCartItemPayload	true	"Cart line"
//	@Success	201		{object}	carts.Item
//	@Failure	400		{object}	ErrorBadRequestResponse
//	@Failure	404		{object}	error
//	@Failure	409		{object}	error
//	@Failure	500		{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/cart/items [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	var payload addCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	l, err := app.store.Listings.GetByID(ctx, payload.ListingID)
	if err != nil {
		app.listingLookupError(w, r, err)
		return
	}
	if !l.Available() {
		app.conflictResponse(w, r, listings.ErrUnavailable)
		return
	}

	it := carts.Item{
		ListingID:    l.ID,
		DeliveryZone: payload.DeliveryZone,
		RentalDays:   payload.RentalDays,
		AddedAt:      time.Now().UTC(),
	}
	if err := checkCartItem(l, &it, user.UserID); err != nil {
		app.cartLineError(w, r, err)
		return
	}

	if err := app.store.Carts.Put(ctx, user.UserID, it); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, it)
}

// updateCartItemHandler godoc
//
//	@Summary	Choose zone or rental days for a cart line
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Param		listingID	path		int						true	"Listing ID"
//	@Param		payload		body		updateCartItemPayload	true	"Changes"
//	@Success	200			{object}	carts.Item
//	@Failure	400			{object}	ErrorBadRequestResponse
//	@Failure	404			{object}	error
//	@Failure	500			{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/cart/items/{listingID} [patch]
func (app *application) updateCartItemHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	id, err := listingIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload updateCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	it, err := app.store.Carts.Get(ctx, user.UserID, id)
	if err != nil {
		app.cartLineError(w, r, err)
		return
	}
	if payload.DeliveryZone != nil {
		it.DeliveryZone = *payload.DeliveryZone
	}
	if payload.RentalDays != nil {
		it.RentalDays = *payload.RentalDays
	}

	l, err := app.store.Listings.GetByID(ctx, id)
	if err != nil {
		app.listingLookupError(w, r, err)
		return
	}
	if err := checkCartItem(l, it, user.UserID); err != nil {
		app.cartLineError(w, r, err)
		return
	}

	if err := app.store.Carts.Put(ctx, user.UserID, *it); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, it)
}

// removeCartItemHandler godoc
//
//	@Summary	Remove a cart line
//	@Tags		cart
//	@Param		listingID	path	int	true	"Listing ID"
//	@Success	204
//	@Failure	404	{object}	error
//	@Failure	500	{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/cart/items/{listingID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	id, err := listingIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Carts.Remove(r.Context(), user.UserID, id); err != nil {
		app.cartLineError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// clearCartHandler godoc
//
//	@Summary	Clear my cart
//	@Tags		cart
//	@Success	204
//	@Failure	500	{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	if err := app.store.Carts.Clear(r.Context(), user.UserID); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkoutHandler godoc
//
//	@Summary		Buy and rent everything in my cart
//	@Description	All lines succeed together or none do. A listing taken by someone else in the meantime fails the whole checkout with 409.
//	@Tags			cart
//	@Produce		json
//	@Success		201	{object}	CheckoutResult
//	@Failure		400	{object}	ErrorBadRequestResponse
//	@Failure		409	{object}	error
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/cart/checkout [post]
func (app *application) checkoutHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	items, err := app.store.Carts.Items(ctx, user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if len(items) == 0 {
		app.badRequestResponse(w, r, errEmptyCart)
		return
	}
	for _, it := range items {
		if it.DeliveryZone == "" {
			app.badRequestResponse(w, r, fmt.Errorf("%w: listing %d", errZoneRequired, it.ListingID))
			return
		}
	}

	result := &CheckoutResult{}
	ownerEmails := make(map[int64]string, len(items))

	err = app.store.WithTx(ctx, func(tx *storage.Tx) error {
		for i := range items {
			it := items[i]

			// claims the listing; a concurrent checkout gets ErrUnavailable here
			l, err := tx.Listings.MarkUnavailable(ctx, it.ListingID)
			if err != nil {
				if errors.Is(err, listings.ErrNotFound) {
					return listings.ErrUnavailable
				}
				return err
			}
			if err := checkCartItem(l, &it, user.UserID); err != nil {
				return err
			}

			n, err := tx.Transactions.NextCheckoutNumber(ctx)
			if err != nil {
				return err
			}
			ref, err := app.references.Generate(n)
			if err != nil {
				return err
			}

			rec := transactions.FromListing(l, ref, user.UserID, it.DeliveryZone, it.RentalDays)
			if err := tx.Transactions.Create(ctx, rec); err != nil {
				return err
			}

			ownerEmails[rec.ListingID] = l.OwnerEmail
			result.Records = append(result.Records, rec)
			result.TotalCents += rec.TotalCents
		}
		return nil
	})
	if err != nil {
		app.cartLineError(w, r, err)
		return
	}

	if err := app.store.Carts.Clear(ctx, user.UserID); err != nil {
		app.logger.Errorw("checkout succeeded but cart was not cleared", "user_id", user.UserID, "error", err)
	}

	for _, rec := range result.Records {
		rec, email := rec, ownerEmails[rec.ListingID]
		app.notify(func(ctx context.Context) {
			app.notifier.ListingCheckedOut(ctx, rec, email)
		})
	}

	app.jsonResponse(w, http.StatusCreated, result)
}
