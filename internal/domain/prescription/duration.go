package prescription

import (
	"errors"
	"math"
	"regexp"
	"strconv"
)

// Fixed day multipliers. Months and years are deliberately not calendar
// accurate.
const (
	DaysPerDay   = 1
	DaysPerWeek  = 7
	DaysPerMonth = 30
	DaysPerYear  = 365
)

var durationPattern = regexp.MustCompile(`(?i)^(\d+)\s(ngày|tuần|tháng|năm)$`)

var durationUnits = map[string]int{
	"ngày":  DaysPerDay,
	"tuần":  DaysPerWeek,
	"tháng": DaysPerMonth,
	"năm":   DaysPerYear,
}

// Duration is a parsed treatment length
type Duration struct {
	Count int
	Unit  string
}

// Days converts the duration with the fixed multipliers
func (d Duration) Days() int {
	mult := durationUnits[d.Unit]
	if mult > 0 && d.Count > math.MaxInt/mult {
		return math.MaxInt
	}
	return d.Count * mult
}

func (d Duration) String() string {
	return strconv.Itoa(d.Count) + " " + d.Unit
}

// ParseDuration parses "<positive integer> <ngày|tuần|tháng|năm>"
func ParseDuration(text string) (Duration, bool) {
	m := durationPattern.FindStringSubmatch(normalizeText(text))
	if m == nil {
		return Duration{}, false
	}
	count, err := strconv.Atoi(m[1])
	if errors.Is(err, strconv.ErrRange) {
		count = math.MaxInt
	} else if err != nil || count <= 0 {
		return Duration{}, false
	}
	unit := foldName(m[2])
	if _, ok := durationUnits[unit]; !ok {
		return Duration{}, false
	}
	return Duration{Count: count, Unit: unit}, true
}
