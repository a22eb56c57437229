package types

import (
  "time"
  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type User struct {
  ID                uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
  Email             string              `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password          string              `gorm:"not null;column:password" json:"-"`
  Nickname          string              `gorm:"column:nickname" json:"nickname"`
  Metadata          datatypes.JSONMap   `gorm:"column:metadata" json:"metadata"`
  AvatarURL         string              `gorm:"column:avatar_url" json:"avatar_url"`
  CreatedAt         time.Time           `gorm:"not null;default:now()" json:"created_at"`
  UpdatedAt         time.Time           `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
  return "user"
}
