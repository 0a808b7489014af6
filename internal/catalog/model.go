package catalog

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Tag string

const (
	TagNone    Tag = ""
	TagHot     Tag = "HOT"
	TagNew     Tag = "NEW"
	TagPremium Tag = "PREMIUM"
)

func (t Tag) String() string {
	return string(t)
}

func ParseTag(s string) (Tag, error) {
	switch tag := Tag(strings.ToUpper(strings.TrimSpace(s))); tag {
	case TagNone, TagHot, TagNew, TagPremium:
		return tag, nil
	default:
		return TagNone, fmt.Errorf("catalog: unknown tag %q", s)
	}
}

type Product struct {
	ID          string          `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Image       string          `json:"image" yaml:"image"`
	Rating      float64         `json:"rating" yaml:"rating"`
	Tag         Tag             `json:"tag,omitempty" yaml:"tag"`
}

func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("catalog: product %q has no name", p.ID)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("catalog: product %q has negative price %s", p.ID, p.Price)
	}
	if _, err := ParseTag(string(p.Tag)); err != nil {
		return err
	}
	return nil
}
