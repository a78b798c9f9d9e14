package domain

// Section 仪表盘分区
type Section string

const (
	SectionClient     Section = "client"
	SectionFreelancer Section = "freelancer"
	SectionCatalog    Section = "catalog"
)

type QuickAction struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Capabilities 角色能力表：各页面统一从这里取权限，不再各自判断角色
type Capabilities struct {
	CanCreateJob         bool          `json:"canCreateJob"`
	CanApply             bool          `json:"canApply"`
	CanEnroll            bool          `json:"canEnroll"`
	CanCreateCourse      bool          `json:"canCreateCourse"`
	CanTrackApplications bool          `json:"canTrackApplications"`
	Sections             []Section     `json:"sections"`
	QuickActions         []QuickAction `json:"quickActions"`
}

var capabilityTable = map[Role]Capabilities{
	RoleClient: {
		CanCreateJob: true,
		Sections:     []Section{SectionClient},
		QuickActions: []QuickAction{
			{Label: "Post a Job", Path: "/jobs?create=true"},
			{Label: "Manage Jobs", Path: "/jobs?tab=open"},
		},
	},
	RoleFreelancer: {
		CanApply:             true,
		CanCreateCourse:      true,
		CanTrackApplications: true,
		Sections:             []Section{SectionFreelancer},
		QuickActions: []QuickAction{
			{Label: "Browse Jobs", Path: "/jobs?tab=open"},
			{Label: "Create Course", Path: "/courses?create=true"},
		},
	},
	RoleLearner: {
		CanEnroll: true,
		Sections:  []Section{SectionCatalog},
		QuickActions: []QuickAction{
			{Label: "Browse Courses", Path: "/courses"},
			{Label: "View Profile", Path: "/profile"},
		},
	},
}

// CapabilitiesFor 未登录返回零值；mentor 额外获得课程目录和建课权限
func CapabilitiesFor(u *User) Capabilities {
	if u == nil {
		return Capabilities{}
	}
	c := capabilityTable[u.NormalizedRole()]
	c.Sections = append([]Section(nil), c.Sections...)
	c.QuickActions = append([]QuickAction(nil), c.QuickActions...)
	if u.IsMentor {
		c.CanCreateCourse = true
		if !c.Has(SectionCatalog) {
			c.Sections = append(c.Sections, SectionCatalog)
		}
	}
	return c
}

func (c Capabilities) Has(s Section) bool {
	for _, v := range c.Sections {
		if v == s {
			return true
		}
	}
	return false
}
