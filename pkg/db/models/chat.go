package models

import (
	"time"

	"github.com/angelmondragon/plexo-core/pkg/enums"
)

// Chat is a conversation between a user and one contact. At most one chat
// exists per (UserID, ContactID).
type Chat struct {
	ID          string    `gorm:"column:id;primaryKey" json:"id"`
	UserID      string    `gorm:"column:user_id;not null;index:chats_user_id_idx;uniqueIndex:chats_user_contact_key" json:"userId"`
	ContactID   string    `gorm:"column:contact_id;not null;index:chats_contact_id_idx;uniqueIndex:chats_user_contact_key" json:"contactId"`
	ContactName string    `gorm:"column:contact_name;not null" json:"contactName"`
	Avatar      *string   `gorm:"column:avatar" json:"avatar,omitempty"`
	ItemID      *string   `gorm:"column:item_id" json:"itemId,omitempty"`
	ItemTitle   *string   `gorm:"column:item_title" json:"itemTitle,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime:false;index:chats_updated_at_idx" json:"updatedAt"`
}

func (Chat) TableName() string { return "chats" }

func (Chat) Collection() enums.Collection { return enums.CollectionChats }

func (c *Chat) PrimaryKey() string { return c.ID }

func (c *Chat) Stamp(now time.Time) { stamp(&c.CreatedAt, &c.UpdatedAt, now) }
