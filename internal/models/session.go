package models

import "time"

type Session struct {
	ID                 string        `gorm:"primaryKey;size:12" json:"id"`
	Status             string        `gorm:"size:20;not null;default:'waiting'" json:"status"`
	CurrentRevealIndex int           `gorm:"not null;default:-1" json:"currentRevealIndex"`
	CanStart           bool          `gorm:"not null;default:false" json:"canStart"`
	Participants       []Participant `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	CreatedAt          time.Time     `json:"created"`
}

const (
	SessionStatusWaiting = "waiting"
	SessionStatusViewing = "viewing"
)
