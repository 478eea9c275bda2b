package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"campusmart/internal/domain/listings"
	"campusmart/internal/domain/reviews"
	"campusmart/internal/params"
)

const maxListingFormBytes = 10 * 1024 * 1024 // 10MB

type createListingPayload struct {
	Kind          string   `validate:"required,oneof=sale rental"`
	Name          string   `validate:"required,max=120"`
	Category      string   `validate:"required,max=60"`
	Description   string   `validate:"max=2000"`
	PriceCents    int64    `validate:"gte=0"`
	ContactInfo   string   `validate:"required,max=120"`
	DeliveryZones []string `validate:"min=3,unique,dive,deliveryzone"`
}

// ListingDetail is a listing page: the listing, its reviews when it is a
// rental, and up to three similar listings.
type ListingDetail struct {
	Listing       *listings.Listing  `json:"listing"`
	Reviews       []reviews.Review   `json:"reviews,omitempty"`
	ReviewCount   int                `json:"review_count"`
	AverageRating float64            `json:"average_rating"`
	Similar       []listings.Listing `json:"similar"`
}

type listingsPage struct {
	Listings   []listings.Listing `json:"listings"`
	Pagination params.Pagination  `json:"pagination"`
}

// formZones accepts repeated delivery_zones fields as well as one
// comma-separated field.
func formZones(values []string) []string {
	var zones []string
	for _, v := range values {
		for _, z := range strings.Split(v, ",") {
			if z = strings.TrimSpace(z); z != "" {
				zones = append(zones, z)
			}
		}
	}
	return zones
}

// browseListingsHandler godoc
//
//	@Summary		Browse available listings
//	@Description	Approved, active listings with optional filters. Prices are in major units.
//	@Tags			listings
//	@Produce		json
//	@Param			kind		query		string	false	"sale or rental"
//	@Param			category	query		string	false	"Category"
//	@Param			q			query		string	false	"Search in name and description"
//	@Param			zone		query		string	false	"Delivery zone"
//	@Param			min_price	query		number	false	"Minimum price"
//	@Param			max_price	query		number	false	"Maximum price"
//	@Param			sort		query		string	false	"newest, price-asc or price-desc"
//	@Param			page		query		int		false	"Page number"
//	@Param			limit		query		int		false	"Items per page (max 30)"
//	@Success		200			{object}	listingsPage
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Router			/listings [get]
func (app *application) browseListingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	filter, page, err := params.ParseListingFilter(r.URL.Query())
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	out, total, err := app.store.Listings.List(ctx, filter)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	page.ComputeMeta(total)

	app.jsonResponse(w, http.StatusOK, listingsPage{Listings: out, Pagination: page})
}

// getDeliveryZonesHandler godoc
//
//	@Summary	List delivery zones
//	@Tags		listings
//	@Produce	json
//	@Success	200	{array}	string
//	@Router		/listings/zones [get]
func (app *application) getDeliveryZonesHandler(w http.ResponseWriter, r *http.Request) {
	app.jsonResponse(w, http.StatusOK, listings.DeliveryZones)
}

// getCategoriesHandler godoc
//
//	@Summary	List categories in use
//	@Tags		listings
//	@Produce	json
//	@Success	200	{array}		string
//	@Failure	500	{object}	ErrorInternalServerResponse
//	@Router		/listings/categories [get]
func (app *application) getCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := app.store.Listings.Categories(ctx)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	app.jsonResponse(w, http.StatusOK, out)
}

// getListingHandler godoc
//
//	@Summary		Get a listing
//	@Description	Listing detail with reviews (rentals) and up to three similar listings of the same kind
//	@Tags			listings
//	@Produce		json
//	@Param			listingID	path		int	true	"Listing ID"
//	@Success		200			{object}	ListingDetail
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Router			/listings/{listingID} [get]
func (app *application) getListingHandler(w http.ResponseWriter, r *http.Request) {
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
	if l.Status != listings.StatusApproved {
		app.notFoundResponse(w, r, listings.ErrNotFound)
		return
	}

	detail := ListingDetail{Listing: l}

	if l.Kind == listings.KindRental {
		rs, err := app.store.Reviews.ListByListing(ctx, id)
		if err != nil {
			app.internalServerError(w, r, err)
			return
		}
		detail.Reviews = rs
		detail.ReviewCount, detail.AverageRating = reviewStats(rs)
	}

	similar, err := app.recommender.SimilarTo(ctx, l)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	detail.Similar = similar

	app.jsonResponse(w, http.StatusOK, detail)
}

func reviewStats(rs []reviews.Review) (int, float64) {
	if len(rs) == 0 {
		return 0, 0
	}
	sum := 0
	for _, rv := range rs {
		sum += rv.Rating
	}
	return len(rs), math.Round(float64(sum)/float64(len(rs))*10) / 10
}

// getSimilarListingsHandler godoc
//
//	@Summary		Similar listings
//	@Description	Up to three available listings of the same kind, most similar first. Empty when the listing has no embedding or is sold. Pending listings are not found.
//	@Tags			listings
//	@Produce		json
//	@Param			listingID	path		int	true	"Listing ID"
//	@Success		200			{array}		listings.Listing
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Router			/listings/{listingID}/similar [get]
func (app *application) getSimilarListingsHandler(w http.ResponseWriter, r *http.Request) {
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
	if l.Status != listings.StatusApproved {
		app.notFoundResponse(w, r, listings.ErrNotFound)
		return
	}

	similar, err := app.recommender.SimilarTo(ctx, l)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, similar)
}

// createListingHandler godoc
//
//	@Summary		Create a listing
//	@Description	Creates a sale or rental listing from a multipart form. Rental prices are per day. New listings wait for admin approval unless approval is switched off.
//	@Tags			listings
//	@Accept			mpfd
//	@Produce		json
//	@Param			kind			formData	string	true	"sale or rental"
//	@Param			name			formData	string	true	"Name"
//	@Param			category		formData	string	true	"Category"
//	@Param			description		formData	string	false	"Description"
//	@Param			price			formData	number	true	"Price (per day for rentals)"
//	@Param			contact_info	formData	string	true	"How buyers reach you"
//	@Param			delivery_zones	formData	[]string	true	"At least three delivery zones"
//	@Param			image			formData	file	false	"jpeg, png or webp"
//	@Success		201				{object}	listings.Listing
//	@Failure		400				{object}	ErrorBadRequestResponse
//	@Failure		401				{object}	error
//	@Failure		500				{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/listings [post]
func (app *application) createListingHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxListingFormBytes)
	if err := r.ParseMultipartForm(maxListingFormBytes); err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("failed to parse form: %w", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	priceCents, err := params.ParsePriceCents(r.FormValue("price"))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payload := createListingPayload{
		Kind:          strings.TrimSpace(r.FormValue("kind")),
		Name:          strings.TrimSpace(r.FormValue("name")),
		Category:      strings.TrimSpace(r.FormValue("category")),
		Description:   strings.TrimSpace(r.FormValue("description")),
		PriceCents:    priceCents,
		ContactInfo:   strings.TrimSpace(r.FormValue("contact_info")),
		DeliveryZones: formZones(r.MultipartForm.Value["delivery_zones"]),
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationError(err))
		return
	}

	// validate the image before anything leaves the process
	var imageURL *string
	file, _, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		app.badRequestResponse(w, r, fmt.Errorf("read image: %w", err))
		return
	default:
		defer file.Close()

		mime, err := sniffMIME(file)
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("sniff mime: %w", err))
			return
		}
		if !allowedImageTypes[mime] {
			app.badRequestResponse(w, r, fmt.Errorf("invalid image type: %s", mime))
			return
		}

		url, err := app.images.Upload(r.Context(), file, newImagePublicID())
		if err != nil {
			app.internalServerError(w, r, fmt.Errorf("failed to upload image: %w", err))
			return
		}
		imageURL = &url
	}

	l := &listings.Listing{
		Kind:          listings.Kind(payload.Kind),
		Name:          payload.Name,
		Category:      payload.Category,
		Description:   payload.Description,
		PriceCents:    payload.PriceCents,
		OwnerID:       user.UserID,
		OwnerEmail:    user.Email,
		ImageURL:      imageURL,
		ContactInfo:   payload.ContactInfo,
		DeliveryZones: payload.DeliveryZones,
		Status:        listings.StatusApproved,
	}
	if app.config.market.requireApproval {
		l.Status = listings.StatusPending
	}

	// a listing without a vector is still saved; it just never shows up as similar
	app.recommender.EmbedListing(r.Context(), l)

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := app.store.Listings.Create(ctx, l); err != nil {
		if imageURL != nil {
			app.deleteImageAsync(*imageURL)
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusCreated, l)
}

// deleteListingHandler godoc
//
//	@Summary	Delete my listing
//	@Tags		listings
//	@Param		listingID	path	int	true	"Listing ID"
//	@Success	204
//	@Failure	400	{object}	ErrorBadRequestResponse
//	@Failure	403	{object}	error
//	@Failure	404	{object}	error
//	@Failure	500	{object}	ErrorInternalServerResponse
//	@Security	ApiKeyAuth
//	@Router		/listings/{listingID} [delete]
func (app *application) deleteListingHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

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
	if l.OwnerID != user.UserID {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.store.Listings.Delete(ctx, id); err != nil {
		app.listingLookupError(w, r, err)
		return
	}
	if l.ImageURL != nil {
		app.deleteImageAsync(*l.ImageURL)
	}

	w.WriteHeader(http.StatusNoContent)
}

// makeListingAvailableHandler godoc
//
//	@Summary		Make my listing available again
//	@Description	Puts a sold or rented listing back on the market. Its embedding is kept as is.
//	@Tags			listings
//	@Produce		json
//	@Param			listingID	path		int	true	"Listing ID"
//	@Success		200			{object}	listings.Listing
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		404			{object}	error
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/listings/{listingID}/make-available [patch]
func (app *application) makeListingAvailableHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	id, err := listingIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	l, err := app.store.Listings.MakeAvailable(ctx, id, user.UserID)
	if err != nil {
		app.listingLookupError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, l)
}

func (app *application) listingLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, listings.ErrNotFound):
		app.notFoundResponse(w, r, err)
	case errors.Is(err, listings.ErrNotOwner):
		app.forbiddenResponse(w, r)
	case errors.Is(err, listings.ErrUnavailable):
		app.conflictResponse(w, r, err)
	default:
		app.internalServerError(w, r, err)
	}
}

func (app *application) deleteImageAsync(imageURL string) {
	if app.images == nil || imageURL == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := app.images.Delete(ctx, imageURL); err != nil {
			app.logger.Warnw("failed to clean up listing image", "url", imageURL, "error", err)
		}
	}()
}
