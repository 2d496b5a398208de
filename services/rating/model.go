package rating

import (
	"time"
)

// Rating is post-completion feedback between two parties of a task. At most
// one rating exists per (task, from, to) pair.
type Rating struct {
	RatingID   string    `gorm:"column:rating_id;primaryKey;type:char(26)" json:"rating_id"`
	TaskID     string    `gorm:"column:task_id;uniqueIndex:idx_rating_pair;not null" json:"task_id"`
	FromUserID string    `gorm:"column:from_user_id;uniqueIndex:idx_rating_pair;not null" json:"from_user_id"`
	ToUserID   string    `gorm:"column:to_user_id;uniqueIndex:idx_rating_pair;index;not null" json:"to_user_id"`
	Score      int       `gorm:"column:score;not null" json:"score"`
	Comment    string    `gorm:"column:comment;type:text" json:"comment,omitempty"`
	Dimension  string    `gorm:"column:dimension;type:varchar(40);not null;default:'overall'" json:"dimension"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Rating) TableName() string {
	return "task_ratings"
}

// Summary is the informational aggregate surfaced to profile views.
type Summary struct {
	UserID  string  `json:"user_id"`
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}
