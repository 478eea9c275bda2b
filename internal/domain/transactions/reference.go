package transactions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/speps/go-hashids/v2"
)

const referencePrefix = "CM-"

// ReferenceGenerator turns sequential checkout numbers into short public
// references that do not reveal order volume.
type ReferenceGenerator struct {
	h *hashids.HashID
}

func NewReferenceGenerator(salt string) (*ReferenceGenerator, error) {
	hd := hashids.NewData()
	hd.Salt = salt
	hd.MinLength = 8
	hd.Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, fmt.Errorf("hashids: %w", err)
	}
	return &ReferenceGenerator{h: h}, nil
}

func (g *ReferenceGenerator) Generate(n int64) (string, error) {
	s, err := g.h.EncodeInt64([]int64{n})
	if err != nil {
		return "", fmt.Errorf("encode checkout reference: %w", err)
	}
	return referencePrefix + s, nil
}

// Decode returns the checkout number behind ref.
func (g *ReferenceGenerator) Decode(ref string) (int64, error) {
	s, ok := strings.CutPrefix(ref, referencePrefix)
	if !ok || s == "" {
		return 0, errors.New("invalid checkout reference")
	}
	nums, err := g.h.DecodeInt64WithError(s)
	if err != nil {
		return 0, fmt.Errorf("decode checkout reference: %w", err)
	}
	if len(nums) != 1 {
		return 0, errors.New("invalid checkout reference")
	}
	return nums[0], nil
}
