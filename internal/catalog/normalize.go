package catalog

import (
	"strings"

	"github.com/gosimple/unidecode"
)

// Normalize folds s to upper-case ASCII so that "Özdebir", "ÖZDEBİR" and
// "OZDEBIR" compare equal.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(unidecode.Unidecode(s)))
}
