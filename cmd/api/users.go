package main

import (
	"net/http"

	"campusmart/internal/auth"
)

type userKey string

const userCtx userKey = "user"

func getUserFromContext(r *http.Request) *auth.Identity {
	user, _ := r.Context().Value(userCtx).(*auth.Identity)
	return user
}

// getMyListingsHandler godoc
//
//	@Summary		List my listings
//	@Description	Every listing the current user created, pending ones included, newest first
//	@Tags			users
//	@Produce		json
//	@Success		200	{array}		listings.Listing
//	@Failure		401	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/me/listings [get]
func (app *application) getMyListingsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	out, err := app.store.Listings.ListByOwner(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, out)
}

// getMyPurchasesHandler godoc
//
//	@Summary		List my purchases and rentals
//	@Tags			users
//	@Produce		json
//	@Success		200	{array}		transactions.Record
//	@Failure		401	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/me/purchases [get]
func (app *application) getMyPurchasesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	out, err := app.store.Transactions.ListByBuyer(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, out)
}

// getMySalesHandler godoc
//
//	@Summary		List what others bought or rented from me
//	@Tags			users
//	@Produce		json
//	@Success		200	{array}		transactions.Record
//	@Failure		401	{object}	error
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/users/me/sales [get]
func (app *application) getMySalesHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	out, err := app.store.Transactions.ListByOwner(r.Context(), user.UserID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, out)
}
