package models

// timeSlotCatalog is the canonical, ordered list of bookable time-slot labels.
var timeSlotCatalog = [...]string{
	"5:00 - 6:00 AM",
	"6:00 - 7:00 AM",
	"7:00 - 8:00 AM",
	"6:00 - 7:00 PM",
	"8:00 - 9:00 PM",
	"9:00 - 10:00 PM",
}

// TimeSlotCatalog returns a copy of the catalog in display order.
func TimeSlotCatalog() []string {
	out := make([]string, len(timeSlotCatalog))
	copy(out, timeSlotCatalog[:])
	return out
}

// TimeSlotIndex returns the catalog position of label, or -1.
func TimeSlotIndex(label string) int {
	for i, l := range timeSlotCatalog {
		if l == label {
			return i
		}
	}
	return -1
}

// IsValidTimeSlot reports whether label is part of the catalog.
func IsValidTimeSlot(label string) bool {
	return TimeSlotIndex(label) >= 0
}
