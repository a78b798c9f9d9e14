package domain

import "strings"

type ApplicationStatus string

const (
	ApplicationApplied  ApplicationStatus = "APPLIED"
	ApplicationAccepted ApplicationStatus = "ACCEPTED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// Normalize 空状态视为 APPLIED
func (s ApplicationStatus) Normalize() ApplicationStatus {
	if s == "" {
		return ApplicationApplied
	}
	return ApplicationStatus(strings.ToUpper(string(s)))
}

// Terminal ACCEPTED / REJECTED 之后不再流转
func (s ApplicationStatus) Terminal() bool {
	n := s.Normalize()
	return n == ApplicationAccepted || n == ApplicationRejected
}

// CanTransitionTo 只允许 APPLIED -> ACCEPTED | REJECTED
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if s.Normalize() != ApplicationApplied {
		return false
	}
	n := next.Normalize()
	return n == ApplicationAccepted || n == ApplicationRejected
}

type Application struct {
	ID             int64             `json:"id"`
	JobID          int64             `json:"jobId"`
	JobTitle       string            `json:"jobTitle"`
	Status         ApplicationStatus `json:"status"`
	AppliedAt      Timestamp         `json:"appliedAt"`
	FreelancerID   int64             `json:"freelancerId"`
	FreelancerName string            `json:"freelancerName"`
	ClientID       int64             `json:"clientId"`
	ClientName     string            `json:"clientName"`
}

type ApplyRequest struct {
	JobID int64 `json:"jobId"`
}

type StatusUpdate struct {
	Status ApplicationStatus `json:"status"`
}
