package models

import (
	"time"

	"github.com/angelmondragon/plexo-core/pkg/enums"
)

// User is a registered marketplace account.
type User struct {
	ID           string         `gorm:"column:id;primaryKey" json:"id"`
	Email        string         `gorm:"column:email;not null;uniqueIndex:users_email_key" json:"email"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Name         string         `gorm:"column:name;not null" json:"name"`
	Bio          string         `gorm:"column:bio;not null" json:"bio"`
	Interest     enums.Interest `gorm:"column:interest;not null" json:"interest"`
	Avatar       *string        `gorm:"column:avatar" json:"avatar,omitempty"`
	Rating       float64        `gorm:"column:rating;not null" json:"rating"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (User) Collection() enums.Collection { return enums.CollectionUsers }

func (u *User) PrimaryKey() string { return u.ID }

func (u *User) Stamp(now time.Time) { stamp(&u.CreatedAt, &u.UpdatedAt, now) }
