package main

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/reviews"
	"campusmart/internal/domain/storage"
)

type createReviewPayload struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,max=500"`
}

type reviewCreated struct {
	Review        *reviews.Review `json:"review"`
	ReviewSummary string          `json:"review_summary"`
}

var (
	errReviewNotRental = errors.New("only rentals can be reviewed")
	errReviewOwn       = errors.New("you cannot review your own listing")
)

// getListingReviewsHandler godoc
//
//	@Summary		List reviews of a listing
//	@Description	Reviews oldest first, with count and average rating rounded to one decimal
//	@Tags			reviews
//	@Produce		json
//	@Param			listingID	path		int	true	"Listing ID"
//	@Success		200			{object}	map[string]interface{}
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Router			/listings/{listingID}/reviews [get]
func (app *application) getListingReviewsHandler(w http.ResponseWriter, r *http.Request) {
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

	rs, err := app.store.Reviews.ListByListing(ctx, id)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	total, average, err := app.store.Reviews.Stats(ctx, id)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	response := map[string]interface{}{
		"reviews":        rs,
		"total_reviews":  total,
		"average":        math.Round(average*10) / 10,
		"review_summary": l.ReviewSummary,
	}

	app.jsonResponse(w, http.StatusOK, response)
}

// createListingReviewHandler godoc
//
//	@Summary		Review a rental
//	@Description	Adds a review and regenerates the listing's review summary
//	@Tags			reviews
//	@Accept			json
//	@Produce		json
//	@Param			listingID	path		int					true	"Listing ID"
//	@Param			payload		body		createReviewPayload	true	"Review"
//	@Success		201			{object}	reviewCreated
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		401			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/listings/{listingID}/reviews [post]
func (app *application) createListingReviewHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	id, err := listingIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload createReviewPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationError(err))
		return
	}

	l, err := app.store.Listings.GetByID(r.Context(), id)
	if err != nil {
		app.listingLookupError(w, r, err)
		return
	}
	switch {
	case l.Status != listings.StatusApproved:
		app.notFoundResponse(w, r, listings.ErrNotFound)
		return
	case l.Kind != listings.KindRental:
		app.badRequestResponse(w, r, errReviewNotRental)
		return
	case l.OwnerID == user.UserID:
		app.badRequestResponse(w, r, errReviewOwn)
		return
	}

	review := &reviews.Review{
		ListingID: id,
		AuthorID:  user.UserID,
		Rating:    payload.Rating,
		Comment:   payload.Comment,
	}

	// the row lock serializes reviewers of one listing, so the summary
	// written last covers every review
	var summary string
	err = app.store.WithTx(r.Context(), func(tx *storage.Tx) error {
		if err := tx.Listings.LockForUpdate(r.Context(), id); err != nil {
			return err
		}
		if err := tx.Reviews.Create(r.Context(), review); err != nil {
			return err
		}
		rs, err := tx.Reviews.ListByListing(r.Context(), id)
		if err != nil {
			return err
		}
		summary = app.summarizer.Summarize(r.Context(), rs)
		return tx.Listings.UpdateReviewSummary(r.Context(), id, summary)
	})
	if err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	l.ReviewSummary = &summary
	app.notify(func(ctx context.Context) {
		app.notifier.ListingReviewed(ctx, l, review.Rating)
	})

	app.jsonResponse(w, http.StatusCreated, reviewCreated{Review: review, ReviewSummary: summary})
}
