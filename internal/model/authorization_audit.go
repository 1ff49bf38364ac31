package model

import "time"

type AuthorizationAudit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ActorID   uint      `json:"actor_id" gorm:"not null;index"`
	Role      Role      `json:"role" gorm:"not null;size:16"`
	Action    string    `json:"action" gorm:"not null;size:64"`
	Resource  string    `json:"resource" gorm:"not null;size:128"`
	Granted   bool      `json:"granted" gorm:"not null"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}
