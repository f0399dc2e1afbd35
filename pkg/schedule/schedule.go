// Package schedule turns a day of quarter-hour prices and a device policy
// into the 96-slot ON/OFF timetable. It does no I/O.
package schedule

import (
	"sort"
	"time"

	"liyu1981.xyz/relay-sync-service/pkg/models"
)

// NoDataAverage is the average of a period without any priced slot, it
// never wins a cheapest selection.
const NoDataAverage = 1e9

// PeriodAverages returns the mean price of every period of the first 96
// slots. Zero prices are gaps left by the feed and do not contribute.
func PeriodAverages(prices []float64, tf models.TimeFrame) []float64 {
	slotsPerPeriod := tf.SlotsPerPeriod()
	periodsPerDay := models.SlotsPerDay / slotsPerPeriod

	averages := make([]float64, periodsPerDay)
	for p := range periodsPerDay {
		sum, n := 0.0, 0
		for s := p * slotsPerPeriod; s < (p+1)*slotsPerPeriod && s < len(prices); s++ {
			if prices[s] != 0 {
				sum += prices[s]
				n++
			}
		}
		if n == 0 {
			averages[p] = NoDataAverage
			continue
		}
		averages[p] = sum / float64(n)
	}
	return averages
}

// Compile builds the schedule. Cheapest selection runs first, then periods
// below MinPrice are forced ON, then periods above MaxPrice are forced OFF.
func Compile(prices []float64, policy models.Policy) []bool {
	slotsPerPeriod := policy.TimeFrame.SlotsPerPeriod()
	averages := PeriodAverages(prices, policy.TimeFrame)
	periodsPerDay := len(averages)

	on := make([]bool, periodsPerDay)

	if policy.NumCheapest > 0 {
		order := make([]int, periodsPerDay)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return averages[order[a]] < averages[order[b]]
		})
		n := min(policy.NumCheapest, periodsPerDay)
		for _, p := range order[:n] {
			on[p] = true
		}
	}

	for p, avg := range averages {
		if avg < policy.MinPrice {
			on[p] = true
		}
	}

	for p, avg := range averages {
		if avg > policy.MaxPrice {
			on[p] = false
		}
	}

	out := make([]bool, models.SlotsPerDay)
	for p := range periodsPerDay {
		for s := p * slotsPerPeriod; s < (p+1)*slotsPerPeriod; s++ {
			out[s] = on[p]
		}
	}
	return out
}

// Uniform returns a schedule with every slot set to v.
func Uniform(v bool) []bool {
	out := make([]bool, models.SlotsPerDay)
	for i := range out {
		out[i] = v
	}
	return out
}

// SlotOf is the quarter-hour index of t within its UTC day.
func SlotOf(t time.Time) int {
	t = t.UTC()
	return t.Hour()*4 + t.Minute()/15
}

// ResolveSlot maps a server supplied slot onto a 15-minute slot index. For a
// multi-slot time frame a value under the number of periods may be a period
// index. Without a server time such a value is mapped to the first slot of
// that period. With one, a value equal to the server clock's own slot is
// kept as a slot even though it is also a valid period index: 1hour at 03:00
// resolves 12 to 12, not 48.
func ResolveSlot(serverSlot int, serverTimeMs int64, tf models.TimeFrame) int {
	slotsPerPeriod := tf.SlotsPerPeriod()
	totalPeriods := models.SlotsPerDay / slotsPerPeriod
	asSlot := ((serverSlot % models.SlotsPerDay) + models.SlotsPerDay) % models.SlotsPerDay

	if slotsPerPeriod == 1 || serverSlot < 0 || serverSlot >= totalPeriods {
		return asSlot
	}
	if serverTimeMs > 0 {
		clockSlot := SlotOf(time.UnixMilli(serverTimeMs))
		if clockSlot == serverSlot {
			return asSlot
		}
		if clockSlot/slotsPerPeriod == serverSlot {
			return serverSlot * slotsPerPeriod
		}
	}
	return serverSlot * slotsPerPeriod
}

// MinNonZeroPrices is how many priced slots a day needs before its prices
// are trusted.
const MinNonZeroPrices = models.SlotsPerDay / 2

// HasUsablePrices reports whether the first 96 prices carry real data.
func HasUsablePrices(prices []float64) bool {
	n := 0
	for i := 0; i < len(prices) && i < models.SlotsPerDay; i++ {
		if prices[i] != 0 {
			n++
		}
	}
	return n >= MinNonZeroPrices
}
