package models

import "time"

type Participant struct {
	ID           string             `gorm:"primaryKey;size:36" json:"id"`
	SessionID    string             `gorm:"size:12;not null;index" json:"-"`
	ConnectionID string             `gorm:"size:36;index" json:"connectionId,omitempty"`
	Username     string             `gorm:"size:100;not null" json:"username"`
	Ready        bool               `gorm:"not null;default:false" json:"ready"`
	JoinedAt     time.Time          `json:"joinedAt"`
	Images       []ParticipantImage `gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE" json:"images"`
}

type ParticipantImage struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	ParticipantID string `gorm:"size:36;not null;index" json:"-"`
	URL           string `gorm:"size:500;not null" json:"url"`
	CharacterName string `gorm:"size:100" json:"characterName,omitempty"`
	OrderNum      int    `gorm:"not null;default:0" json:"-"`
}
