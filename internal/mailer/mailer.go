package mailer

import "embed"

const (
	FromName                = "CampusMart"
	maxRetires              = 3
	ListingApprovedTemplate = "listing_approved.tmpl"
	ListingSoldTemplate     = "listing_sold.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) error
}
