package service

import "strconv"

// FormatJPY renders an integer yen amount for display, e.g. ¥110,000.
// Yen has no minor unit, so there is never a decimal part.
func FormatJPY(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return sign + "¥" + string(out)
}
