package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/jersey-storefront/internal/cart"
)

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
)

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Item is a cart line frozen into an order.
type Item struct {
	LineID    string          `json:"lineId"`
	ProductID string          `json:"productId"`
	Title     string          `json:"title"`
	Image     string          `json:"image"`
	Size      cart.Size       `json:"selectedSize"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type Order struct {
	ID        string          `json:"id"`
	Reference string          `json:"reference"`
	UserID    string          `json:"userId"`
	Email     string          `json:"email"`
	Items     []Item          `json:"items"`
	Address   string          `json:"address"`
	Payment   string          `json:"payment"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func ItemsFromLines(lines []cart.Line) []Item {
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			LineID:    l.ID,
			ProductID: l.ProductID,
			Title:     l.Title,
			Image:     l.Image,
			Size:      l.Size,
			Quantity:  l.Quantity,
			Price:     l.Price,
		}
	}
	return items
}

// Reference is the human-facing order number shown on receipts.
func Reference(t time.Time) string {
	return fmt.Sprintf("ORDER-%d", t.UnixMilli())
}
