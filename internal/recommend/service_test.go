package recommend

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"strings"
	"testing"
	"unicode"

	"campusmart/internal/domain/listings"
	"campusmart/internal/embedding"
)

const bowDims = 256

// bagOfWords is a deterministic embedding provider: each lower-cased word
// bumps one hashed dimension.
type bagOfWords struct {
	down bool
}

func (b *bagOfWords) Embed(_ context.Context, texts []string, _ string) ([][]float32, error) {
	if b.down {
		return nil, errors.New("dial tcp: connection refused")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, bowDims)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, w := range words {
			h := fnv.New32a()
			h.Write([]byte(w))
			v[h.Sum32()%bowDims]++
		}
		out[i] = v
	}
	return out, nil
}

// memStore returns every listing of the kind from ListSimilarityCandidates,
// so filtering is left to the service.
type memStore struct {
	nextID int64
	items  map[int64]*listings.Listing
}

func newMemStore() *memStore {
	return &memStore{items: map[int64]*listings.Listing{}}
}

func (m *memStore) create(l *listings.Listing) {
	m.nextID++
	l.ID = m.nextID
	m.items[l.ID] = l
}

func (m *memStore) GetByID(_ context.Context, id int64) (*listings.Listing, error) {
	l, ok := m.items[id]
	if !ok {
		return nil, listings.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) ListSimilarityCandidates(_ context.Context, kind listings.Kind, _ int64) ([]listings.Listing, error) {
	out := []listings.Listing{}
	for _, l := range m.items {
		if l.Kind == kind {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fixture struct {
	store    *memStore
	provider *bagOfWords
	svc      *Service
}

func newFixture() *fixture {
	f := &fixture{store: newMemStore(), provider: &bagOfWords{}}
	f.svc = NewService(f.store, embedding.NewClient(f.provider, bowDims, nil), nil)
	return f
}

// create mirrors the creation path: embed, then persist whatever came back.
func (f *fixture) create(kind listings.Kind, name, desc string) *listings.Listing {
	l := &listings.Listing{
		Kind:        kind,
		Name:        name,
		Description: desc,
		Status:      listings.StatusApproved,
		IsActive:    true,
	}
	f.svc.EmbedListing(context.Background(), l)
	f.store.create(l)
	return l
}

func ids(ls []listings.Listing) []int64 {
	out := make([]int64, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}

func indexOf(ls []listings.Listing, id int64) int {
	for i, l := range ls {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func TestSimilarRanksRelatedListingFirst(t *testing.T) {
	f := newFixture()
	x := f.create(listings.KindSale, "Study Lamp", "bright LED desk lamp")
	y := f.create(listings.KindSale, "LED Desk Lamp", "bright lamp for studying")
	z := f.create(listings.KindSale, "Guitar", "acoustic six-string")

	got, err := f.svc.Similar(context.Background(), x.ID)
	if err != nil {
		t.Fatalf("Similar() error = %v", err)
	}

	iy, iz := indexOf(got, y.ID), indexOf(got, z.ID)
	if iy == -1 {
		t.Fatalf("Similar() = %v, want it to contain %d", ids(got), y.ID)
	}
	if iz != -1 && iz < iy {
		t.Errorf("Similar() = %v, unrelated listing ranked above related one", ids(got))
	}
	if indexOf(got, x.ID) != -1 {
		t.Errorf("Similar() = %v, includes the target itself", ids(got))
	}
}

func TestCreateWithProviderDownStoresNoEmbedding(t *testing.T) {
	f := newFixture()
	a := f.create(listings.KindSale, "Desk Lamp", "bright LED lamp")

	f.provider.down = true
	b := f.create(listings.KindSale, "LED Desk Lamp", "bright LED lamp")
	f.provider.down = false

	if b.ID == 0 {
		t.Fatal("listing was not persisted")
	}
	if b.Embedding != nil || b.HasEmbedding {
		t.Errorf("Embedding = %v, HasEmbedding = %v, want none", b.Embedding, b.HasEmbedding)
	}

	got, err := f.svc.Similar(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if indexOf(got, b.ID) != -1 {
		t.Errorf("Similar(a) = %v, includes listing without embedding", ids(got))
	}

	got, err = f.svc.Similar(context.Background(), b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Similar(b) = %v, want empty", ids(got))
	}
}

func TestSoldListingLeavesResults(t *testing.T) {
	f := newFixture()
	target := f.create(listings.KindSale, "Mini Fridge", "compact dorm fridge")
	twin := f.create(listings.KindSale, "Mini Fridge", "compact dorm fridge")
	other := f.create(listings.KindSale, "Dorm Fridge", "small fridge")

	before, _ := f.svc.Similar(context.Background(), target.ID)
	if len(before) == 0 || before[0].ID != twin.ID {
		t.Fatalf("Similar() before sale = %v, want %d first", ids(before), twin.ID)
	}

	f.store.items[twin.ID].IsActive = false

	after, err := f.svc.Similar(context.Background(), target.ID)
	if err != nil {
		t.Fatal(err)
	}
	if indexOf(after, twin.ID) != -1 {
		t.Errorf("Similar() after sale = %v, still includes sold listing", ids(after))
	}
	if indexOf(after, other.ID) == -1 {
		t.Errorf("Similar() after sale = %v, want %d", ids(after), other.ID)
	}

	// reactivation restores it without re-embedding
	f.store.items[twin.ID].IsActive = true
	again, _ := f.svc.Similar(context.Background(), target.ID)
	if len(again) == 0 || again[0].ID != twin.ID {
		t.Errorf("Similar() after make-available = %v, want %d first", ids(again), twin.ID)
	}
}

func TestSimilarStaysWithinKind(t *testing.T) {
	f := newFixture()
	sale := f.create(listings.KindSale, "Road Bike", "fast bike")
	rental := f.create(listings.KindRental, "Road Bike", "fast bike")

	got, err := f.svc.Similar(context.Background(), sale.ID)
	if err != nil {
		t.Fatal(err)
	}
	if indexOf(got, rental.ID) != -1 {
		t.Errorf("Similar() = %v, includes listing of another kind", ids(got))
	}
}

func TestSimilarSkipsPendingListings(t *testing.T) {
	f := newFixture()
	target := f.create(listings.KindSale, "Kettle", "electric kettle")
	pending := f.create(listings.KindSale, "Kettle", "electric kettle")
	f.store.items[pending.ID].Status = listings.StatusPending

	got, _ := f.svc.Similar(context.Background(), target.ID)
	if indexOf(got, pending.ID) != -1 {
		t.Errorf("Similar() = %v, includes pending listing", ids(got))
	}
}

func TestSimilarReturnsAtMostThree(t *testing.T) {
	f := newFixture()
	target := f.create(listings.KindSale, "Textbook", "calculus textbook")
	for i := 0; i < 5; i++ {
		f.create(listings.KindSale, "Textbook", "calculus textbook")
	}

	got, _ := f.svc.Similar(context.Background(), target.ID)
	if len(got) != DefaultTopK {
		t.Errorf("len(Similar()) = %d, want %d", len(got), DefaultTopK)
	}
}

func TestSimilarUnknownListing(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Similar(context.Background(), 404); !errors.Is(err, listings.ErrNotFound) {
		t.Errorf("Similar() error = %v, want ErrNotFound", err)
	}
}
