package work

import (
	"time"
)

// Status is the review state of a submitted asset.
type Status string

const (
	StatusSubmitted        Status = "submitted"
	StatusApproved         Status = "approved"
	StatusRevisionRequired Status = "revision_required"
)

// AssetType is the closed set of deliverable kinds.
type AssetType string

const (
	AssetVideo   AssetType = "video"
	AssetImage   AssetType = "image"
	AssetArticle AssetType = "article"
	AssetAudio   AssetType = "audio"
)

func ParseAssetType(name string) (AssetType, bool) {
	switch AssetType(name) {
	case AssetVideo, AssetImage, AssetArticle, AssetAudio:
		return AssetType(name), true
	}
	return "", false
}

// Asset is one submitted deliverable. Review never mutates content; a
// revision is a new row pointing back at the one it replaces.
type Asset struct {
	AssetID     string    `gorm:"column:asset_id;primaryKey;type:char(26)" json:"asset_id"`
	TaskID      string    `gorm:"column:task_id;index;not null" json:"task_id"`
	CreatorID   string    `gorm:"column:creator_id;index;not null" json:"creator_id"`
	Type        AssetType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Title       string    `gorm:"column:title;type:varchar(255)" json:"title"`
	ContentURL  string    `gorm:"column:content_url;type:varchar(2048);not null" json:"content_url"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Status      Status    `gorm:"column:status;type:varchar(20);index;not null;default:'submitted'" json:"status"`

	Feedback   string     `gorm:"column:feedback;type:text" json:"feedback,omitempty"`
	ReviewedBy string     `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`

	// ResubmissionOf links a revision back to the asset it replaces.
	ResubmissionOf string `gorm:"column:resubmission_of;index" json:"resubmission_of,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Asset) TableName() string {
	return "work_assets"
}
