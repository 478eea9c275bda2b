package main

import (
	"errors"
	"net/http"

	"campusmart/internal/auth"
)

type MagicLinkPayload struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
}

// sendMagicLinkHandler godoc
//
//	@Summary		Send a magic sign-in link
//	@Description	Asks the identity provider to email a one-time sign-in link. The link leads back to the app, which then holds a bearer token for this API.
//	@Tags			authentication
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		MagicLinkPayload	true	"Email to sign in"
//	@Success		202		{object}	map[string]string
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		503		{object}	error
//	@Router			/auth/magiclink [post]
func (app *application) sendMagicLinkHandler(w http.ResponseWriter, r *http.Request) {
	var payload MagicLinkPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, validationError(err))
		return
	}

	redirect := payload.RedirectTo
	if redirect == "" {
		redirect = app.config.frontendURL
	}

	if err := app.identity.SendMagicLink(r.Context(), payload.Email, redirect); err != nil {
		if errors.Is(err, auth.ErrIdentityNotConfigured) {
			app.serviceUnavailableResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusAccepted, map[string]string{"message": "check your inbox for a sign-in link"})
}
