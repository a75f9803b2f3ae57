package core

import "time"

// Display styles for FormatIST.
const (
	StyleShort    = "short"
	StyleLong     = "long"
	StyleTime     = "time"
	StyleDatetime = "datetime"
)

// istZone is UTC+5:30; all timestamps are displayed in Indian Standard Time.
var istZone = time.FixedZone("IST", (5*60+30)*60)

// ToIST converts a timestamp to the display zone.
func ToIST(t time.Time) time.Time {
	return t.In(istZone)
}

// FormatIST renders a timestamp in IST using one of the display styles.
// Unknown styles fall back to the short date form.
func FormatIST(t time.Time, style string) string {
	ist := ToIST(t)
	switch style {
	case StyleLong:
		return ist.Format("Monday, 2 January 2006")
	case StyleTime:
		return ist.Format("3:04 pm")
	case StyleDatetime:
		return ist.Format("2 Jan 2006, 3:04 pm")
	case StyleShort:
		fallthrough
	default:
		return ist.Format("2 Jan 2006")
	}
}
