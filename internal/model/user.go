package model

import "time"

const (
	RoleClient = "client"
	RoleReader = "reader"
	RoleAdmin  = "admin"
)

// User is the stable identity row synced from the external
// identity/authentication collaborator. Id is immutable once created;
// role only ever changes through an admin action.
type User struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	AuthSubject string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"auth_subject"`
	Role        string    `gorm:"type:varchar(16);not null" json:"role"`
	DisplayName string    `gorm:"type:varchar(128)" json:"display_name"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "user" }
