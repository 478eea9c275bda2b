package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const listingImageFolder = "listings"

// imageStore keeps listing photos somewhere public.
type imageStore interface {
	Upload(ctx context.Context, file io.Reader, publicID string) (string, error)
	Delete(ctx context.Context, imageURL string) error
}

type cloudinaryImages struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func newCloudinaryImages(cld *cloudinary.Cloudinary) *cloudinaryImages {
	return &cloudinaryImages{cld: cld, folder: listingImageFolder}
}

func (c *cloudinaryImages) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    c.folder,
		PublicID:  publicID,
		Overwrite: api.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

func (c *cloudinaryImages) Delete(ctx context.Context, imageURL string) error {
	publicID, err := extractPublicIDFromURL(imageURL)
	if err != nil {
		return fmt.Errorf("failed to extract public ID: %w", err)
	}

	_, err = c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete photo from Cloudinary: %w", err)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+$`)

// extractPublicIDFromURL turns
// https://res.cloudinary.com/<cloud>/image/upload/v123/listings/abc.jpg into listings/abc.
func extractPublicIDFromURL(photoURL string) (string, error) {
	parsedURL, err := url.Parse(photoURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	pathParts := strings.Split(parsedURL.Path, "/")
	for i, part := range pathParts {
		if part == "upload" && i+1 < len(pathParts) {
			rest := pathParts[i+1:]
			if len(rest) > 1 && versionSegment.MatchString(rest[0]) {
				rest = rest[1:]
			}
			id := strings.Join(rest, "/")
			return strings.TrimSuffix(id, path.Ext(id)), nil
		}
	}

	return "", errors.New("failed to extract public ID from URL")
}

func newImagePublicID() string {
	return "listing_" + uuid.NewString()
}

var allowedImageTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}

func sniffMIME(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read: %w", err)
	}
	mime := http.DetectContentType(buf[:n])

	// reset so later reads start from byte 0
	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek reset: %w", err)
		}
	}
	return mime, nil
}
