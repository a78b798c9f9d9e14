package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type JobStatus string

const (
	JobOpen       JobStatus = "OPEN"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
)

// Normalize 空状态视为 OPEN
func (s JobStatus) Normalize() JobStatus {
	if s == "" {
		return JobOpen
	}
	return JobStatus(strings.ToUpper(string(s)))
}

// Label "in_progress" -> "in progress"
func (s JobStatus) Label() string {
	return strings.ReplaceAll(strings.ToLower(string(s.Normalize())), "_", " ")
}

// Budget 可能是数字，也可能是 "1000-2000" 这样的区间字符串
type Budget string

func (b *Budget) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*b = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("budget: %w", err)
		}
		*b = Budget(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("budget: %w", err)
		}
		*b = Budget(n.String())
	}
	return nil
}

func (b Budget) MarshalJSON() ([]byte, error) {
	if b == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err == nil {
		return []byte(b), nil
	}
	return json.Marshal(string(b))
}

// Amount 单值预算的数值；区间或非法值返回 false
func (b Budget) Amount() (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (b Budget) String() string { return string(b) }

type Job struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Budget         Budget    `json:"budget"`
	Status         JobStatus `json:"status"`
	CreatedAt      Timestamp `json:"createdAt"`
	RequiredSkills []string  `json:"requiredSkills"`
	ClientID       int64     `json:"clientId"`
	ClientName     string    `json:"clientName"`
	FreelancerID   *int64    `json:"freelancerId"`
	FreelancerName *string   `json:"freelancerName"`
}

// Assigned 一个 job 最多一个 freelancer，分配后不再接受申请
func (j Job) Assigned() bool { return j.FreelancerID != nil }

func (j Job) AssignedTo(userID int64) bool {
	return j.FreelancerID != nil && *j.FreelancerID == userID
}

type JobRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Budget      float64  `json:"budget"`
	Skills      []string `json:"skills"`
}

type JobDetail struct {
	Job          Job           `json:"job"`
	Applications []Application `json:"applications"`
}
