package models

import "fmt"

// Category is the classification label assigned to a message.
type Category string

const (
	CategoryInterested    Category = "Interested"
	CategoryMeetingBooked Category = "MeetingBooked"
	CategoryNotInterested Category = "NotInterested"
	CategorySpam          Category = "Spam"
	CategoryOutOfOffice   Category = "OutOfOffice"
	CategoryUncategorized Category = "Uncategorized"
)

// AllCategories lists every valid category value.
var AllCategories = []Category{
	CategoryInterested,
	CategoryMeetingBooked,
	CategoryNotInterested,
	CategorySpam,
	CategoryOutOfOffice,
	CategoryUncategorized,
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a string into a Category, rejecting unknown values.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}
