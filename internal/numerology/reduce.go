package numerology

import "fmt"

// Result is the value set computed for one date.
type Result struct {
	// Primary is 1..9 or a master number (11, 22, 33).
	Primary int
	// DigitTotal is the raw digit sum of YYYYMMDD, never reduced.
	DigitTotal int
	// SecondaryEnergy is the reduction of the day of month alone.
	SecondaryEnergy int
}

// IsMaster reports whether n is one of the preserved master numbers.
func IsMaster(n int) bool {
	return n == 11 || n == 22 || n == 33
}

// DigitSum sums the decimal digits of |n|.
func DigitSum(n int) int {
	if n < 0 {
		n = -n
	}
	s := 0
	for n > 0 {
		s += n % 10
		n /= 10
	}
	return s
}

// ReduceNumber repeatedly digit-sums n until a single digit remains,
// stopping early on a master number after any pass (including the first).
func ReduceNumber(n int) int {
	s := DigitSum(n)
	if IsMaster(s) {
		return s
	}
	for s > 9 {
		s = DigitSum(s)
		if IsMaster(s) {
			return s
		}
	}
	return s
}

// Reduce computes the Result for d.
func Reduce(d CalendarDate) Result {
	total := 0
	for _, c := range fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day) {
		total += int(c - '0')
	}
	return Result{
		Primary:         ReduceNumber(d.Year + d.Month + d.Day),
		DigitTotal:      total,
		SecondaryEnergy: ReduceNumber(d.Day),
	}
}
