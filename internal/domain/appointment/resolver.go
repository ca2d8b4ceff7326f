package appointment

// FreeSlots returns the catalog labels not held by a scheduled appointment of
// doctorID on date. The result keeps catalog order and is empty, never nil,
// when the day is fully booked. Cancelled, completed and rescheduled records
// do not hold their slot.
func FreeSlots(c *Catalog, appts []*Appointment, doctorID, date string) []string {
	taken := make(map[string]struct{})
	for _, a := range appts {
		if a.DoctorID == doctorID && a.Date == date && a.Status == StatusScheduled {
			taken[a.TimeSlot] = struct{}{}
		}
	}
	free := make([]string, 0, c.Len())
	for _, l := range c.labels {
		if _, ok := taken[l]; !ok {
			free = append(free, l)
		}
	}
	return free
}

// slotHeld reports whether another open appointment occupies the slot. Unlike
// FreeSlots it counts rescheduled records too, so nothing can be booked or
// moved into a slot a rescheduled appointment now sits in.
func slotHeld(appts []*Appointment, doctorID, date, slot, exceptID string) bool {
	for _, a := range appts {
		if a.ID == exceptID {
			continue
		}
		if a.DoctorID == doctorID && a.Date == date && a.TimeSlot == slot && a.Status.Open() {
			return true
		}
	}
	return false
}
