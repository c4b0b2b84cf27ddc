package models

import "time"

// Course represents a course offered by the institution.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	StartDate   time.Time `db:"start_date" json:"start_date"`
	EndDate     time.Time `db:"end_date" json:"end_date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CourseDetail enriches Course with the number of lecture units, which doubles
// as the instructional-hour count on certificates.
type CourseDetail struct {
	Course
	LectureCount int `db:"lecture_count" json:"lecture_count"`
}

// Lecture is a single instructional unit within a course.
type Lecture struct {
	ID       string `db:"id" json:"id"`
	CourseID string `db:"course_id" json:"course_id"`
	Title    string `db:"title" json:"title"`
	Position int    `db:"position" json:"position"`
}
