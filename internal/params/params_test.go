package params

import (
	"net/url"
	"testing"

	"campusmart/internal/domain/listings"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantPage   int
		wantOffset int
	}{
		{"", 15, 1, 0},
		{"limit=10&page=3", 10, 3, 20},
		{"limit=100", 30, 1, 0},
		{"limit=-1&page=0", 15, 1, 0},
		{"limit=abc&page=xyz", 15, 1, 0},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		p := ParsePagination(q)
		if p.Limit != tt.wantLimit || p.Page != tt.wantPage || p.Offset != tt.wantOffset {
			t.Errorf("ParsePagination(%q) = %+v, want limit=%d page=%d offset=%d",
				tt.query, p, tt.wantLimit, tt.wantPage, tt.wantOffset)
		}
	}
}

func TestComputeMeta(t *testing.T) {
	p := Pagination{Limit: 10, Page: 2, Offset: 10}
	p.ComputeMeta(25)
	if p.TotalPages != 3 || !p.HasNext || !p.HasPrev {
		t.Errorf("ComputeMeta(25) = %+v", p)
	}

	p = Pagination{Limit: 10, Page: 1}
	p.ComputeMeta(0)
	if p.TotalPages != 0 || p.HasNext || p.HasPrev {
		t.Errorf("ComputeMeta(0) = %+v", p)
	}
}

func TestParsePriceCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 1200, false},
		{"12.5", 1250, false},
		{" 0.99 ", 99, false},
		{"19.999", 2000, false},
		{"", 0, true},
		{"-3", 0, true},
		{"ten", 0, true},
		{"NaN", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePriceCents(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePriceCents(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePriceCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseListingFilter(t *testing.T) {
	q, _ := url.ParseQuery("kind=rental&category=Outdoor&q=tent&zone=Woods&min_price=1&max_price=9.5&sort=price-desc&page=2&limit=5")
	f, p, err := ParseListingFilter(q)
	if err != nil {
		t.Fatalf("ParseListingFilter() error = %v", err)
	}
	if f.Kind != listings.KindRental || f.Category != "Outdoor" || f.Search != "tent" || f.Zone != "Woods" {
		t.Errorf("filter = %+v", f)
	}
	if *f.MinPriceCents != 100 || *f.MaxPriceCents != 950 {
		t.Errorf("price range = %d..%d, want 100..950", *f.MinPriceCents, *f.MaxPriceCents)
	}
	if f.Sort != listings.SortPriceDesc || f.Limit != 5 || f.Offset != 5 || p.Page != 2 {
		t.Errorf("filter = %+v, pagination = %+v", f, p)
	}
}

func TestParseListingFilterRejects(t *testing.T) {
	for _, query := range []string{
		"kind=auction",
		"sort=popular",
		"zone=Library",
		"min_price=abc",
		"min_price=10&max_price=5",
	} {
		q, _ := url.ParseQuery(query)
		if _, _, err := ParseListingFilter(q); err == nil {
			t.Errorf("ParseListingFilter(%q) error = nil, want error", query)
		}
	}
}

func TestParseListingFilterDefaults(t *testing.T) {
	f, _, err := ParseListingFilter(url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != "" || f.Sort != listings.SortNewest || f.MinPriceCents != nil {
		t.Errorf("default filter = %+v", f)
	}
}
