package params

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"campusmart/internal/domain/listings"
)

// URL: /listings?page=2&limit=30
// → ParsePagination() → Pagination{Limit:30, Page:2, Offset:30}
// → SQL: SELECT ... LIMIT 30 OFFSET 30
// → DB returns data + total count
// → ComputeMeta(total) → fills TotalPages, HasNext, etc.
// Pagination holds pagination info and computed metadata.
type Pagination struct {
	Limit      int  `json:"limit"`       // items per page
	Offset     int  `json:"offset"`      // SQL OFFSET value
	Page       int  `json:"page"`        // Current Page number
	Total      int  `json:"total"`       //Total item in database
	TotalPages int  `json:"total_pages"` //Total pages available
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ParsePagination parses ?limit=...&page=... safely.  Careful key are case sensitive
func ParsePagination(q url.Values) Pagination {
	p := Pagination{
		Limit: 15, // default
		Page:  1,
	}

	if limitStr := strings.TrimSpace(q.Get("limit")); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			switch {
			case limit <= 0:
				p.Limit = 15
			case limit > 30:
				p.Limit = 30
			default:
				p.Limit = limit
			}
		}
	}

	if pageStr := strings.TrimSpace(q.Get("page")); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			p.Page = page
		}
	}

	p.Offset = (p.Page - 1) * p.Limit
	return p
}

// ComputeMeta updates pagination after fetching total count.
func (p *Pagination) ComputeMeta(total int) {
	p.Total = total
	if p.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	p.HasPrev = p.Page > 1
	p.HasNext = (p.Page * p.Limit) < total
}

// ParsePriceCents reads a price like "12", "12.5" or "12.50" into cents.
func ParsePriceCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("price is required")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("price must not be negative")
	}
	return int64(math.Round(f * 100)), nil
}

// ParseListingFilter reads the browse query:
// ?kind=sale&category=Books&q=lamp&zone=Woods&min_price=5&max_price=20&sort=price-asc&page=1&limit=15
func ParseListingFilter(q url.Values) (listings.Filter, Pagination, error) {
	p := ParsePagination(q)
	f := listings.Filter{
		Category: strings.TrimSpace(q.Get("category")),
		Search:   strings.TrimSpace(q.Get("q")),
		Zone:     strings.TrimSpace(q.Get("zone")),
		Sort:     listings.SortNewest,
		Limit:    p.Limit,
		Offset:   p.Offset,
	}

	if k := strings.TrimSpace(q.Get("kind")); k != "" {
		f.Kind = listings.Kind(k)
		if !f.Kind.Valid() {
			return f, p, fmt.Errorf("invalid kind %q", k)
		}
	}

	switch s := strings.TrimSpace(q.Get("sort")); s {
	case "", listings.SortNewest:
	case listings.SortPriceAsc, listings.SortPriceDesc:
		f.Sort = s
	default:
		return f, p, fmt.Errorf("invalid sort %q", s)
	}

	if f.Zone != "" && !listings.IsDeliveryZone(f.Zone) {
		return f, p, fmt.Errorf("unknown delivery zone %q", f.Zone)
	}

	if v := q.Get("min_price"); strings.TrimSpace(v) != "" {
		c, err := ParsePriceCents(v)
		if err != nil {
			return f, p, fmt.Errorf("min_price: %w", err)
		}
		f.MinPriceCents = &c
	}
	if v := q.Get("max_price"); strings.TrimSpace(v) != "" {
		c, err := ParsePriceCents(v)
		if err != nil {
			return f, p, fmt.Errorf("max_price: %w", err)
		}
		f.MaxPriceCents = &c
	}
	if f.MinPriceCents != nil && f.MaxPriceCents != nil && *f.MinPriceCents > *f.MaxPriceCents {
		return f, p, errors.New("min_price must not exceed max_price")
	}

	return f, p, nil
}
