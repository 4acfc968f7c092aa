// internal/finance/format.go
package finance

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount the way receipts show it: "Rp 1.250.000".
// Fractions are rounded to whole rupiah.
func FormatRupiah(amount float64) string {
	rounded := int64(math.Round(amount))
	if rounded < 0 {
		return "-Rp " + idPrinter.Sprintf("%d", -rounded)
	}
	return "Rp " + idPrinter.Sprintf("%d", rounded)
}
