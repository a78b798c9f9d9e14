package domain

import "strings"

type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleFreelancer Role = "FREELANCER"
	RoleLearner    Role = "LEARNER"
)

// ParseRole 大小写不敏感；未知角色返回 false
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleClient, RoleFreelancer, RoleLearner:
		return r, true
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Bio      string `json:"bio"`
	Skills   string `json:"skills"` // 逗号分隔
	IsMentor bool   `json:"isMentor"`
}

// NormalizedRole 服务端偶尔返回小写角色
func (u *User) NormalizedRole() Role {
	if u == nil {
		return ""
	}
	r, _ := ParseRole(string(u.Role))
	return r
}

// SkillList 拆分 skills 字段，去空白、小写
func (u *User) SkillList() []string {
	if u == nil || u.Skills == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(u.Skills, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FirstName 用于问候语，没有名字时退回邮箱
func (u *User) FirstName() string {
	if u == nil {
		return ""
	}
	if f := strings.Fields(u.Name); len(f) > 0 {
		return f[0]
	}
	return u.Email
}

type Credentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
	Role     Role   `json:"role"     validate:"required,oneof=CLIENT FREELANCER LEARNER"`
	Skills   string `json:"skills,omitempty"`
	Bio      string `json:"bio,omitempty"`
	IsMentor *bool  `json:"isMentor,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ProfileUpdate struct {
	Name     string `json:"name"     validate:"required"`
	Bio      string `json:"bio"`
	Skills   string `json:"skills"`
	IsMentor bool   `json:"isMentor"`
}
