package catalog

import (
	"errors"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names as they appear in JSON bodies and form inputs.
const (
	FieldProductName = "product_name"
	FieldCategory    = "category"
	FieldPrice       = "price"
	FieldDiscount    = "discount"
)

const (
	MsgProductNameRequired = "Product name is required"
	MsgCategoryRequired    = "Category is required"
	MsgPricePositive       = "Price must be a positive number"
	MsgDiscountNegative    = "Discount cannot be negative"
	MsgDiscountTooLarge    = "Discount must be less than or equal to 100"
	MsgDiscountNumber      = "Discount must be a number"
)

// messages maps a field and the validator tag that failed on it to the text shown to the user.
var messages = map[string]map[string]string{
	FieldProductName: {"required": MsgProductNameRequired},
	FieldCategory:    {"required": MsgCategoryRequired},
	FieldPrice:       {"gt": MsgPricePositive},
	FieldDiscount:    {"gte": MsgDiscountNegative, "lte": MsgDiscountTooLarge},
}

// FieldErrors maps a field name to the first violation found for it.
type FieldErrors map[string]string

// Error implements error so FieldErrors can travel through error returns.
func (fe FieldErrors) Error() string {
	keys := slices.Sorted(maps.Keys(fe))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// add records msg for field unless the field already has a violation.
func (fe FieldErrors) add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// Validate checks every field of p and returns nil when p is acceptable.
func Validate(p Payload) FieldErrors {
	fe := FieldErrors{}
	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		fe.add(FieldPrice, MsgPricePositive)
	}
	if p.Discount != nil && (math.IsNaN(*p.Discount) || math.IsInf(*p.Discount, 0)) {
		fe.add(FieldDiscount, MsgDiscountNumber)
	}

	err := validate.Struct(p)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldErr := range validationErrors {
			field := fieldErr.Field()
			msg, ok := messages[field][fieldErr.Tag()]
			if !ok {
				msg = "failed on rule: " + fieldErr.Tag()
			}
			fe.add(field, msg)
		}
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

// Draft is the raw, untyped content of a product form.
type Draft struct {
	ProductName string
	Category    string
	Price       string
	Discount    string
}

// DraftOf renders p into form values.
func DraftOf(p Product) Draft {
	d := Draft{
		ProductName: p.ProductName,
		Category:    p.Category,
		Price:       formatNumber(p.Price),
	}
	if p.Discount != nil {
		d.Discount = formatNumber(*p.Discount)
	}
	return d
}

// ParseDraft converts form input into a payload and validates it.
// Numbers that cannot be parsed are reported on their field; an empty discount is absent.
func ParseDraft(d Draft) (Payload, FieldErrors) {
	fe := FieldErrors{}
	p := Payload{
		ProductName: d.ProductName,
		Category:    d.Category,
	}

	if price, ok := parseNumber(d.Price); ok {
		p.Price = price
	} else {
		fe.add(FieldPrice, MsgPricePositive)
	}

	if strings.TrimSpace(d.Discount) != "" {
		if discount, ok := parseNumber(d.Discount); ok {
			p.Discount = &discount
		} else {
			fe.add(FieldDiscount, MsgDiscountNumber)
		}
	}

	for field, msg := range Validate(p) {
		fe.add(field, msg)
	}
	if len(fe) == 0 {
		return p, nil
	}
	return p, fe
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
