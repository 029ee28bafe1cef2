package views

import (
	"github.com/abgdnv/catalogadmin/internal/catalog"
	"github.com/abgdnv/catalogadmin/internal/store"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Row is one product as shown in the list.
type Row struct {
	ID          int64
	ProductName string
	Category    string
	Price       string
	Discount    string
}

// List is the view model of the product list page.
type List struct {
	Rows    []Row
	Status  store.Status
	Loading bool
	// Error is set when the newest load failed. Rows may still hold the previous items.
	Error string
	// Flash is a one-off message from the last action, e.g. a failed delete.
	Flash string
}

var idr = message.NewPrinter(language.Indonesian)

// FormatPrice renders an amount as Indonesian rupiah, e.g. "Rp 5.000,00".
func FormatPrice(v float64) string {
	return idr.Sprintf("Rp %v", number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// FormatDiscount renders an optional discount percentage, empty when absent.
func FormatDiscount(v *float64) string {
	if v == nil {
		return ""
	}
	return idr.Sprintf("%v%%", number.Decimal(*v, number.MaxFractionDigits(2)))
}

// NewList builds the list page from a store snapshot, keeping the backend's order.
func NewList(st store.State, flash string) List {
	l := List{
		Rows:    make([]Row, 0, len(st.Items)),
		Status:  st.Status,
		Loading: st.Status == store.StatusLoading || st.Status == store.StatusIdle,
		Flash:   flash,
	}
	if st.Status == store.StatusFailed {
		l.Error = MsgLoadFailed
	}
	for _, p := range st.Items {
		l.Rows = append(l.Rows, rowOf(p))
	}
	return l
}

func rowOf(p catalog.Product) Row {
	return Row{
		ID:          p.ID,
		ProductName: p.ProductName,
		Category:    p.Category,
		Price:       FormatPrice(p.Price),
		Discount:    FormatDiscount(p.Discount),
	}
}
