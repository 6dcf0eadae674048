// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// CourseMeta is the per-course metadata record written as course.yaml into
// each mirrored course directory.
type CourseMeta struct {
	// ID is the Canvas course ID.
	ID int64 `json:"id" yaml:"id"`

	// Name is the course display name as reported by Canvas.
	Name string `json:"name" yaml:"name"`

	// CourseCode is the short course code (e.g. "CS-101").
	CourseCode string `json:"course_code,omitempty" yaml:"course_code,omitempty"`

	// MirroredAt is when the mirror run processed this course.
	MirroredAt time.Time `json:"mirrored_at" yaml:"mirrored_at"`

	// ModuleCount is the number of modules mirrored for this course.
	ModuleCount int `json:"module_count" yaml:"module_count"`
}
