package main

import (
	"context"
	"net/http"
	"time"

	"campusmart/internal/domain/listings"
)

// PendingListings is the approval queue split by kind.
type PendingListings struct {
	Sale   []listings.Listing `json:"sale"`
	Rental []listings.Listing `json:"rental"`
}

// getPendingListingsHandler godoc
//
//	@Summary	List listings awaiting approval
//	@Tags		admin
//	@Produce	json
//	@Success	200	{object}	PendingListings
//	@Failure	403	{object}	error
//	@Failure	500	{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/admin/listings/pending [get]
func (app *application) getPendingListingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pending, err := app.store.Listings.ListPending(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	out := PendingListings{Sale: []listings.Listing{}, Rental: []listings.Listing{}}
	for _, l := range pending {
		if l.Kind == listings.KindRental {
			out.Rental = append(out.Rental, l)
		} else {
			out.Sale = append(out.Sale, l)
		}
	}

	app.jsonResponse(w, http.StatusOK, out)
}

// approveListingHandler godoc
//
//	@Summary	Approve a listing
//	@Tags		admin
//	@Produce	json
//	@Param		listingID	path		int	true	"Listing ID"
//	@Success	200			{object}	listings.Listing
//	@Failure	403			{object}	error
//	@Failure	404			{object}	error
//	@Failure	500			{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/admin/listings/{listingID}/approve [patch]
func (app *application) approveListingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	l, err := app.store.Listings.Approve(ctx, id)
	if err != nil {
		app.listingLookupError(w, r, err)
		return
	}

	app.notify(func(ctx context.Context) {
		app.notifier.ListingApproved(ctx, l)
	})

	app.jsonResponse(w, http.StatusOK, l)
}

// rejectListingHandler godoc
//
//	@Summary		Reject a listing
//	@Description	Deletes the listing and its image
//	@Tags			admin
//	@Param			listingID	path	int	true	"Listing ID"
//	@Success		204
//	@Failure		403	{object}	error
//	@Failure		404	{object}	error
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/listings/{listingID} [delete]
func (app *application) rejectListingHandler(w http.ResponseWriter, r *http.Request) {
	id, err := listingIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	l, err := app.store.Listings.GetByID(ctx, id)
	if err != nil {
		app.listingLookupError(w, r, err)
		return
	}

	if err := app.store.Listings.Delete(ctx, id); err != nil {
		app.listingLookupError(w, r, err)
		return
	}
	if l.ImageURL != nil {
		app.deleteImageAsync(*l.ImageURL)
	}

	app.logger.Infow("listing rejected", "listing_id", id, "owner_id", l.OwnerID)
	w.WriteHeader(http.StatusNoContent)
}
