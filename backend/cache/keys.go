package cache

import "net/url"

// Keys live in one place so invalidation and population always agree.

// CoursesListPrefix matches every course-list entry regardless of role, group or filters.
const CoursesListPrefix = "courses:list"

// noGroup stands in for a requester without a group. QueryEscape never emits a bare '*',
// so no group name can produce it.
const noGroup = "*"

// CoursesList derives the list key from the requester's role and group plus optional filters.
// Segments are query-escaped so a ':' inside a filter cannot imitate another segment.
func CoursesList(role, group, category, search string) string {
	g := noGroup
	if group != "" {
		g = url.QueryEscape(group)
	}
	key := CoursesListPrefix + ":" + url.QueryEscape(role) + ":" + g
	if category != "" {
		key += ":cat:" + url.QueryEscape(category)
	}
	if search != "" {
		key += ":search:" + url.QueryEscape(search)
	}
	return key
}

func CourseDetails(courseID string) string        { return "course:details:" + courseID }
func CourseModules(courseID string) string        { return "course:modules:" + courseID }
func ModuleLessons(moduleID string) string        { return "module:lessons:" + moduleID }
func UserProfile(userID string) string            { return "user:profile:" + userID }
func MyRequests(userID string) string             { return "enrollments:my-requests:" + userID }
func Recommendations(userID string) string        { return "recommendations:" + userID }
func SessionRecommendations(userID string) string { return "recommendations:session:" + userID }
func UserGroupsAll() string                       { return "user-groups:all" }
