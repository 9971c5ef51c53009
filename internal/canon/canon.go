// Package canon computes normalized comparison keys for operator-entered
// catalog labels. The pipeline is part of the stored-data contract: keys
// produced here were used to merge historical rows, so the exact sequence of
// transformations must not change.
package canon

import "strings"

// unitSynonyms normalizes pack-size vocabulary. Longest synonym first so
// "pkts" becomes "pk", not "pks".
var unitSynonyms = strings.NewReplacer(
	"pkts", "pk",
	"pkt", "pk",
	" gms", " g",
	" gm", " g",
	"gms", "g",
	"gm", "g",
	" kgs", " kg",
	"kgs", "kg",
	" mls", " ml",
	"mls", "ml",
)

// Key maps a free-text label to its canonical comparison key. Pure and total:
// empty input yields the empty key. Two labels are considered the same
// catalog entry when their keys are equal.
func Key(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}
	// The multiplication sign shows up in pack sizes pasted from spreadsheets.
	s = strings.ReplaceAll(s, "×", "x")
	s = strings.Join(strings.Fields(s), " ")
	// "1 x 48", "1 x48", "1x 48" all collapse to "1x48".
	s = strings.ReplaceAll(s, " x ", "x")
	s = strings.ReplaceAll(s, " x", "x")
	s = strings.ReplaceAll(s, "x ", "x")
	s = unitSynonyms.Replace(s)
	s = strings.ReplaceAll(s, "  ", " ")
	// Trailing single-letter variant markers fold into the preceding token:
	// "500gm Z" and "500gmz" are the same item.
	if strings.HasSuffix(s, " z") || strings.HasSuffix(s, " v") {
		s = s[:len(s)-2] + s[len(s)-1:]
	}
	return s
}

// PairKey computes the key over a product name and pack descriptor merged
// together. Operators enter pack information in either field inconsistently;
// merging first makes "Basmati Sunrice" + "5X5Kg Z" equal to
// "basmati sunrice 5x5kgz" + "".
func PairKey(name, pack string) string {
	return Key(strings.TrimSpace(strings.TrimSpace(name) + " " + strings.TrimSpace(pack)))
}

// Fold is the weaker normalization used for supplier name matching: trim,
// collapse whitespace runs, casefold. It deliberately skips the unit synonym
// pipeline — supplier names carry no pack vocabulary.
func Fold(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
