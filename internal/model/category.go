package model

import (
	"fmt"
	"strings"
)

// Category classifies documents. The string value is the lowercase token used
// in object keys and in the database.
type Category string

const (
	CategoryGeneral        Category = "general"
	CategoryContracts      Category = "contracts"
	CategoryInvoices       Category = "invoices"
	CategoryReports        Category = "reports"
	CategoryLegal          Category = "legal"
	CategoryHumanResources Category = "humanresources"
	CategoryFinance        Category = "finance"
	CategoryTechnical      Category = "technical"
	CategoryMarketing      Category = "marketing"
	CategoryOther          Category = "other"
)

var categories = []Category{
	CategoryGeneral,
	CategoryContracts,
	CategoryInvoices,
	CategoryReports,
	CategoryLegal,
	CategoryHumanResources,
	CategoryFinance,
	CategoryTechnical,
	CategoryMarketing,
	CategoryOther,
}

// Categories returns every known category.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory accepts any casing plus "human_resources"/"human-resources"/"hr".
func ParseCategory(s string) (Category, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	token = strings.NewReplacer("_", "", "-", "", " ", "").Replace(token)
	if token == "hr" {
		token = string(CategoryHumanResources)
	}
	for _, c := range categories {
		if string(c) == token {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the key token.
func (c Category) String() string {
	return string(c)
}
