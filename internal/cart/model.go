package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
)

type Size string

const (
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

func (s Size) String() string {
	return string(s)
}

func ParseSize(s string) (Size, error) {
	switch size := Size(strings.ToUpper(strings.TrimSpace(s))); size {
	case SizeS, SizeM, SizeL, SizeXL:
		return size, nil
	default:
		return "", apperr.New(apperr.KindInvalidArgument, fmt.Sprintf("unknown size %q", s))
	}
}

// Snapshot is the product data copied onto a line when it is first added.
// Later catalog edits do not change lines already in a cart.
type Snapshot struct {
	Title string
	Image string
	Price decimal.Decimal
}

type Line struct {
	ID        string          `json:"id,omitempty"`
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Size      Size            `json:"selectedSize"`
	Quantity  int64           `json:"quantity"`
	AddedAt   time.Time       `json:"addedAt"`
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(l.Quantity))
}

// LineID is the document id of the line holding productID in size. One line
// exists per pair, so adding the same pair twice lands on the same document.
func LineID(productID string, size Size) string {
	return productID + "_" + string(size)
}
