package models

import "fmt"

// Category classifies a post. The set is fixed; anything the UI cannot
// file under school, travel or food lands in "others".
type Category string

const (
	CategorySchool Category = "school"
	CategoryTravel Category = "travel"
	CategoryFood   Category = "food"
	CategoryOthers Category = "others"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategorySchool, CategoryTravel, CategoryFood, CategoryOthers}

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategorySchool, CategoryTravel, CategoryFood, CategoryOthers:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

func (c Category) Valid() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}
