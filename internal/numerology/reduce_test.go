package numerology

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigitSum(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{7, 7},
		{2054, 11},
		{-2054, 11},
		{20250821, 20},
	}
	for _, tt := range tests {
		if got := DigitSum(tt.in); got != tt.want {
			t.Fatalf("DigitSum(%d)=%d want %d", tt.in, got, tt.want)
		}
	}
}

func TestReduceNumber(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, 0},
		{"single digit", 8, 8},
		{"11 is summed", 11, 2},
		{"22 is summed", 22, 4},
		{"33 is summed", 33, 6},
		{"first pass master", 2054, 11},
		{"first pass 22", 994, 22},
		{"first pass 33", 9996, 33},
		{"intermediate master", 2999, 11}, // 29 -> 11
		{"two passes", 2017, 1},           // 10 -> 1
		{"non-master two digit", 3999, 3}, // 30 -> 3
		{"negative", -29, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReduceNumber(tt.in))
		})
	}
}

func TestReduceNumberNeverLeavesNonMasterAboveNine(t *testing.T) {
	for n := 1; n <= 20000; n++ {
		got := ReduceNumber(n)
		if !(got >= 1 && got <= 9) && !IsMaster(got) {
			t.Fatalf("ReduceNumber(%d)=%d", n, got)
		}
	}
}

func TestReduceExamples(t *testing.T) {
	d, err := NewCalendarDate(2025, 8, 21)
	require.NoError(t, err)
	assert.Equal(t, Result{Primary: 11, DigitTotal: 20, SecondaryEnergy: 3}, Reduce(d))

	d, err = NewCalendarDate(1999, 9, 9)
	require.NoError(t, err)
	r := Reduce(d)
	assert.Equal(t, 1, r.Primary)
	assert.Equal(t, 1+9+9+9+0+9+0+9, r.DigitTotal)
	assert.Equal(t, 9, r.SecondaryEnergy)

	// 2975+12+12 = 2999 -> 29 -> 11
	d, err = NewCalendarDate(2975, 12, 12)
	require.NoError(t, err)
	assert.Equal(t, 11, Reduce(d).Primary)
}

func TestReduceSecondaryIgnoresMonthAndYear(t *testing.T) {
	for _, day := range []int{11, 22, 29} {
		want := ReduceNumber(day)
		for _, ym := range [][2]int{{1900, 1}, {2024, 3}, {2031, 12}} {
			d, err := NewCalendarDate(ym[0], ym[1], day)
			require.NoError(t, err)
			assert.Equal(t, want, Reduce(d).SecondaryEnergy)
		}
	}
	d, _ := NewCalendarDate(2000, 1, 29)
	assert.Equal(t, 11, Reduce(d).SecondaryEnergy)

	// day 22 is digit-summed before any master check
	d, _ = NewCalendarDate(2025, 8, 22)
	assert.Equal(t, 4, Reduce(d).SecondaryEnergy)
	d, _ = NewCalendarDate(2025, 8, 11)
	assert.Equal(t, 2, Reduce(d).SecondaryEnergy)
}

func TestDigitTotalMatchesPaddedDigits(t *testing.T) {
	start := time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 97) {
		d := DateOf(day)
		want := 0
		for _, c := range day.Format("20060102") {
			want += int(c - '0')
		}
		r := Reduce(d)
		if r.DigitTotal != want {
			t.Fatalf("%s: DigitTotal=%d want %d", d, r.DigitTotal, want)
		}
		if r != Reduce(d) {
			t.Fatalf("%s: Reduce not deterministic", d)
		}
	}

	// year 2005 contributes 2,0,0,5
	d, _ := NewCalendarDate(2005, 1, 1)
	assert.Equal(t, 2+0+0+5+0+1+0+1, Reduce(d).DigitTotal)
}

func TestParseDate(t *testing.T) {
	ok := map[string]CalendarDate{
		"08/21/2025":   {2025, 8, 21},
		"8/21/2025":    {2025, 8, 21},
		"02/29/2024":   {2024, 2, 29},
		" 12/31/1999 ": {1999, 12, 31},
	}
	for in, want := range ok {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	bad := []string{
		"13/40/2025",
		"2025-08-21",
		"02/29/2023",
		"00/10/2020",
		"01/01/0000",
		"1/1/25",
		"",
		"08/21/2025 extra",
		"08/21/20251",
		"8-21-2025",
	}
	for _, in := range bad {
		_, err := ParseDate(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidDate), in)
	}
}

func TestCalendarDateFormatting(t *testing.T) {
	d, err := NewCalendarDate(2025, 8, 1)
	require.NoError(t, err)
	assert.Equal(t, "08/01/2025", d.String())
	assert.Equal(t, "August 01, 2025", d.Long())
	assert.True(t, strings.HasPrefix(fmt.Sprint(d.Time(nil)), "2025-08-01 00:00:00"))
	assert.False(t, d.IsZero())
}
