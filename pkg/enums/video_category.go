package enums

import "fmt"

// VideoCategory classifies an uploaded video for the catalog.
type VideoCategory string

const (
	VideoCategoryEntertainment VideoCategory = "entertainment"
	VideoCategoryEducation     VideoCategory = "education"
	VideoCategoryMusic         VideoCategory = "music"
	VideoCategorySports        VideoCategory = "sports"
	VideoCategoryGaming        VideoCategory = "gaming"
	VideoCategoryNews          VideoCategory = "news"
	VideoCategoryTechnology    VideoCategory = "technology"
	VideoCategoryOther         VideoCategory = "other"
)

var validVideoCategories = []VideoCategory{
	VideoCategoryEntertainment,
	VideoCategoryEducation,
	VideoCategoryMusic,
	VideoCategorySports,
	VideoCategoryGaming,
	VideoCategoryNews,
	VideoCategoryTechnology,
	VideoCategoryOther,
}

// String returns the literal string for the category.
func (v VideoCategory) String() string {
	return string(v)
}

// IsValid reports whether the category is known.
func (v VideoCategory) IsValid() bool {
	for _, candidate := range validVideoCategories {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVideoCategory converts raw input into a VideoCategory. Empty input
// falls back to VideoCategoryOther.
func ParseVideoCategory(value string) (VideoCategory, error) {
	if value == "" {
		return VideoCategoryOther, nil
	}
	for _, candidate := range validVideoCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid video category %q", value)
}
