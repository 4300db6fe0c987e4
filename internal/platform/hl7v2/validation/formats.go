package validation

import (
	"regexp"
	"strconv"
	"time"
)

var (
	nmPattern  = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	siPattern  = regexp.MustCompile(`^\d+$`)
	dtPattern  = regexp.MustCompile(`^(\d{4}(?:\d{2}(?:\d{2})?)?)$`)
	tmPattern  = regexp.MustCompile(`^(\d{2}(?:\d{2}(?:\d{2}(?:\.\d{1,4})?)?)?)([+-]\d{4})?$`)
	dtmPattern = regexp.MustCompile(`^(\d{4}(?:\d{2}(?:\d{2})?)?)(\d{2}(?:\d{2}(?:\d{2}(?:\.\d{1,4})?)?)?)?([+-]\d{4})?$`)
)

// ValidFormat reports whether value is well formed for the primitive data
// type typ. Types without a format rule are always valid.
func ValidFormat(typ, value string) bool {
	switch typ {
	case "NM":
		return nmPattern.MatchString(value)
	case "SI":
		return siPattern.MatchString(value)
	case "DT":
		m := dtPattern.FindStringSubmatch(value)
		return m != nil && validDate(m[1])
	case "TM":
		m := tmPattern.FindStringSubmatch(value)
		return m != nil && validClock(m[1]) && validOffset(m[2])
	case "DTM", "TS":
		m := dtmPattern.FindStringSubmatch(value)
		return m != nil && validDate(m[1]) && (m[2] == "" || validClock(m[2])) && validOffset(m[3])
	}
	return true
}

var dateLayouts = map[int]string{4: "2006", 6: "200601", 8: "20060102"}

func validDate(s string) bool {
	layout, ok := dateLayouts[len(s)]
	if !ok {
		return false
	}
	_, err := time.Parse(layout, s)
	return err == nil
}

// validClock checks HH[MM[SS[.S]]] ranges.
func validClock(s string) bool {
	limits := []int{23, 59, 59}
	for i := 0; i < 3 && len(s) >= 2*(i+1); i++ {
		n, err := strconv.Atoi(s[2*i : 2*i+2])
		if err != nil || n > limits[i] {
			return false
		}
	}
	return true
}

func validOffset(s string) bool {
	if s == "" {
		return true
	}
	hh, _ := strconv.Atoi(s[1:3])
	mm, _ := strconv.Atoi(s[3:5])
	return hh <= 14 && mm <= 59
}
