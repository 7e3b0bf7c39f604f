package materialize

import (
	"strings"

	"plancal/internal/model"
)

// Catalog indexes classes and subjects by id.
type Catalog struct {
	classes  map[string]model.Class
	subjects map[string]model.Subject
}

func NewCatalog(classes []model.Class, subjects []model.Subject) Catalog {
	c := Catalog{
		classes:  make(map[string]model.Class, len(classes)),
		subjects: make(map[string]model.Subject, len(subjects)),
	}
	for _, cl := range classes {
		c.classes[cl.ID] = cl
	}
	for _, s := range subjects {
		c.subjects[s.ID] = s
	}
	return c
}

func (c Catalog) ClassName(id string) string {
	if id == "" {
		return ""
	}
	return c.classes[id].Name
}

func (c Catalog) SubjectName(id string) string {
	if id == "" {
		return ""
	}
	return c.subjects[id].Name
}

// Title joins subject and class names in the preferred order, skipping
// whichever is missing.
func (c Catalog) Title(classID, subjectID string, pref model.ColorPreference) string {
	class := c.ClassName(classID)
	subject := c.SubjectName(subjectID)
	parts := []string{subject, class}
	if pref == model.PreferClass {
		parts = []string{class, subject}
	}
	out := make([]string, 0, 2)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " - ")
}

// Color returns the preferred catalogue colour, falling back to the other.
func (c Catalog) Color(classID, subjectID string, pref model.ColorPreference) string {
	class := c.classes[classID].Color
	subject := c.subjects[subjectID].Color
	if pref == model.PreferClass {
		if class != "" {
			return class
		}
		return subject
	}
	if subject != "" {
		return subject
	}
	return class
}
