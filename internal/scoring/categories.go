package scoring

import "strings"

// Category is one of the five scored activity streams.
type Category string

const (
	CategoryAcademic        Category = "ACADEMIC"
	CategoryChallenges      Category = "CHALLENGES"
	CategoryMastery         Category = "MASTERY"
	CategorySeminars        Category = "SEMINARS"
	CategoryExtracurricular Category = "EXTRACURRICULAR"
)

// Categories lists every category in composite order.
var Categories = []Category{
	CategoryAcademic,
	CategoryChallenges,
	CategoryMastery,
	CategorySeminars,
	CategoryExtracurricular,
}

// ParseCategory accepts any casing of a known category name.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Tag is a mastery language tag.
type Tag string

const (
	TagC          Tag = "C"
	TagCPP        Tag = "CPP"
	TagJava       Tag = "JAVA"
	TagPython     Tag = "PYTHON"
	TagJavaScript Tag = "JAVASCRIPT"
)

// Tags is the closed set averaged by the mastery category. Untouched tags count as zero.
var Tags = []Tag{TagC, TagCPP, TagJava, TagPython, TagJavaScript}

// ParseTag normalises a mastery tag.
func ParseTag(raw string) (Tag, bool) {
	t := Tag(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Tags {
		if t == known {
			return t, true
		}
	}
	return "", false
}
