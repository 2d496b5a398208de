package permission

import (
	"time"
)

// EntityType classifies a business entity on the platform.
type EntityType string

const (
	EntitySupplier EntityType = "supplier"
	EntityCreator  EntityType = "creator"
	EntityMedia    EntityType = "media"
)

// PermissionLevel is the two-tier grant level.
type PermissionLevel string

const (
	LevelManager PermissionLevel = "manager"
	LevelUser    PermissionLevel = "user"
)

// Capability names one of the five fixed capability flags. The set is
// closed; unknown names are rejected at the boundary.
type Capability string

const (
	CapManageUsers   Capability = "manage_users"
	CapManageContent Capability = "manage_content"
	CapManageFinance Capability = "manage_finance"
	CapViewAnalytics Capability = "view_analytics"
	CapEditProfile   Capability = "edit_profile"
)

// Capabilities lists every known capability.
func Capabilities() []Capability {
	return []Capability{CapManageUsers, CapManageContent, CapManageFinance, CapViewAnalytics, CapEditProfile}
}

// ParseCapability validates a capability name against the closed set.
func ParseCapability(name string) (Capability, bool) {
	switch Capability(name) {
	case CapManageUsers, CapManageContent, CapManageFinance, CapViewAnalytics, CapEditProfile:
		return Capability(name), true
	}
	return "", false
}

// ParseLevel validates a permission level name.
func ParseLevel(name string) (PermissionLevel, bool) {
	switch PermissionLevel(name) {
	case LevelManager, LevelUser:
		return PermissionLevel(name), true
	}
	return "", false
}

// BusinessEntity is a supplier, creator or media organisation.
type BusinessEntity struct {
	EntityID    string     `gorm:"column:entity_id;primaryKey;type:char(26)" json:"entity_id"`
	Type        EntityType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Name        string     `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Description string     `gorm:"column:description;type:text" json:"description"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// UserBusinessPermission binds a user to a business entity with a level and
// five explicit capability flags.
type UserBusinessPermission struct {
	PermissionID  string          `gorm:"column:permission_id;primaryKey;type:char(26)" json:"permission_id"`
	UserID        string          `gorm:"column:user_id;index;not null" json:"user_id"`
	EntityID      string          `gorm:"column:entity_id;index;not null" json:"entity_id"`
	Level         PermissionLevel `gorm:"column:level;type:varchar(20);not null;default:'user'" json:"level"`
	ManageUsers   bool            `gorm:"column:manage_users" json:"manage_users"`
	ManageContent bool            `gorm:"column:manage_content" json:"manage_content"`
	ManageFinance bool            `gorm:"column:manage_finance" json:"manage_finance"`
	ViewAnalytics bool            `gorm:"column:view_analytics" json:"view_analytics"`
	EditProfile   bool            `gorm:"column:edit_profile" json:"edit_profile"`
	Active        bool            `gorm:"column:active;default:true" json:"active"`
	ExpiresAt     *time.Time      `gorm:"column:expires_at" json:"expires_at,omitempty"`
	GrantedBy     string          `gorm:"column:granted_by" json:"granted_by"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Allows resolves a capability against the grant. A manager grant implies
// every capability; a user grant always allows edit_profile, the rest are
// explicit.
func (p *UserBusinessPermission) Allows(c Capability) bool {
	if p.Level == LevelManager {
		return true
	}

	switch c {
	case CapManageUsers:
		return p.ManageUsers
	case CapManageContent:
		return p.ManageContent
	case CapManageFinance:
		return p.ManageFinance
	case CapViewAnalytics:
		return p.ViewAnalytics
	case CapEditProfile:
		return true
	default:
		return false
	}
}

// Usable reports whether the grant is active and unexpired at now.
func (p *UserBusinessPermission) Usable(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return false
	}
	return true
}
