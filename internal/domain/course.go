package domain

type Course struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoURL    string    `json:"videoUrl"`
	Price       float64   `json:"price"`
	CreatedAt   Timestamp `json:"createdAt"`
	MentorID    int64     `json:"mentorId"`
	MentorName  string    `json:"mentorName"`
}

type CourseRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	VideoURL    string  `json:"videoUrl"`
	Price       float64 `json:"price"`
}

type Enrollment struct {
	ID         int64     `json:"id"`
	CourseID   int64     `json:"courseId"`
	LearnerID  int64     `json:"learnerId"`
	EnrolledAt Timestamp `json:"enrolledAt"`
}
