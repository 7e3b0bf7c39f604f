package aggregate

import (
	"sort"
	"strings"
	"time"

	appLog "plancal/internal/log"
	"plancal/internal/model"
)

// groupKey identifies a lesson group within one date. IDs are part of the
// key so lessons whose class or subject is missing from the catalogue never
// merge across classes.
type groupKey struct {
	title                  string
	classID, subjectID     string
	className, subjectName string
}

type placedLesson struct {
	lesson     model.Lesson
	start, end time.Time
}

// lessonGroups folds the concrete lessons of one date into spanning units,
// one per (title, class, subject).
func (a *Aggregator) lessonGroups(day time.Time, key string) []model.Unit {
	lessons := a.lessonsByDate[key]
	if len(lessons) == 0 {
		return nil
	}

	groups := make(map[groupKey][]placedLesson)
	var order []groupKey

	for _, l := range lessons {
		_, start, end, ok := a.mat.SlotRange(l.TimetableSlotID, day)
		if !ok {
			appLog.Debug("aggregate: lesson slot unknown; lesson not placed", "lesson_id", l.ID, "slot_id", l.TimetableSlotID)
			continue
		}
		k := groupKey{
			title:       a.lessonTitle(l),
			classID:     l.ClassID,
			subjectID:   l.SubjectID,
			className:   a.catalog.ClassName(l.ClassID),
			subjectName: a.catalog.SubjectName(l.SubjectID),
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], placedLesson{lesson: l, start: start, end: end})
	}

	out := make([]model.Unit, 0, len(order))
	for _, k := range order {
		out = append(out, a.groupUnit(k, groups[k], key))
	}
	return out
}

func (a *Aggregator) groupUnit(k groupKey, members []placedLesson, key string) model.Unit {
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].start.Equal(members[j].start) {
			return members[i].start.Before(members[j].start)
		}
		return members[i].lesson.ID < members[j].lesson.ID
	})

	first := members[0].lesson
	info := &model.LessonInfo{
		ClassID:       k.classID,
		ClassName:     k.className,
		SubjectID:     k.subjectID,
		SubjectName:   k.subjectName,
		PlanCompleted: true,
	}

	start, end := members[0].start, members[0].end
	color := ""
	for _, m := range members {
		if m.start.Before(start) {
			start = m.start
		}
		if m.end.After(end) {
			end = m.end
		}
		if color == "" {
			color = m.lesson.Color
		}
		if info.LessonPlan == "" {
			info.LessonPlan = m.lesson.LessonPlan
		}
		info.PlanCompleted = info.PlanCompleted && m.lesson.PlanCompleted
		info.LessonIDs = append(info.LessonIDs, m.lesson.ID)
		info.SlotIDs = append(info.SlotIDs, m.lesson.TimetableSlotID)
	}
	if color == "" {
		color = a.catalog.Color(first.ClassID, first.SubjectID, a.opts.Preference)
	}

	return model.Unit{
		ID:     "lesson:" + strings.Join(info.LessonIDs, "+"),
		Kind:   model.KindLesson,
		Title:  k.title,
		Color:  color,
		Date:   key,
		Start:  start,
		End:    end,
		Lesson: info,
	}
}

func (a *Aggregator) lessonTitle(l model.Lesson) string {
	if t := strings.TrimSpace(l.Title); t != "" {
		return t
	}
	return a.catalog.Title(l.ClassID, l.SubjectID, a.opts.Preference)
}
