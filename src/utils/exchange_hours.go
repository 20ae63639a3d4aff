package utils

import "time"

// CalendarExchangeHours adapts TradingCalendar to feed.ExchangeHours so the
// fill-forward enumerator (C4) can ask "is the market open" without the
// feed package depending on scmhub/calendar directly.
type CalendarExchangeHours struct {
	cal *TradingCalendar
}

func NewCalendarExchangeHours(symbol string) *CalendarExchangeHours {
	return &CalendarExchangeHours{cal: GetCalendar(symbol)}
}

// IsOpen reports whether t (any timezone) falls inside a regular session.
// extended widens the fallback window to 04:00-20:00 local exchange time;
// the scmhub/calendar path has no pre/post-market session data, so extended
// hours there degrade to the same fallback window rather than the
// calendar's regular-session answer.
func (h *CalendarExchangeHours) IsOpen(t time.Time, extended bool) bool {
	local := t.In(h.cal.Timezone)

	if !extended {
		return h.cal.IsOpenOnMinute(local)
	}

	if !h.cal.IsTradingDay(local) {
		return false
	}
	hour := local.Hour()
	return hour >= 4 && hour < 20
}

func (h *CalendarExchangeHours) TimeZone() *time.Location {
	return h.cal.Timezone
}
