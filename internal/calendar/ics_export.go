package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/teemow/calslot/internal/availability"
)

const productID = "-//calslot//free slots//EN"

// EncodeSlotsICS renders slots as an iCalendar document with one tentative,
// transparent VEVENT per slot, so it can be imported as placeholders.
func EncodeSlotsICS(slots []availability.FreeSlot, title string, stamp time.Time) ([]byte, error) {
	if len(slots) == 0 {
		return nil, fmt.Errorf("no slots to export")
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	if title == "" {
		title = "Available"
	}

	for _, slot := range slots {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, uuid.NewString())
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		event.Props.SetDateTime(ical.PropDateTimeStart, slot.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, slot.End.UTC())
		event.Props.SetText(ical.PropSummary, title)
		event.Props.SetText(ical.PropStatus, "TENTATIVE")
		event.Props.SetText(ical.PropTransparency, "TRANSPARENT")
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode iCalendar: %w", err)
	}
	return buf.Bytes(), nil
}
