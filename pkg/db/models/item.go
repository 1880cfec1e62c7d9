package models

import (
	"time"

	"github.com/angelmondragon/plexo-core/pkg/enums"
	"github.com/shopspring/decimal"
)

// SellerSnapshot is copied onto an item at listing time so the market view
// does not depend on the seller's later profile edits.
type SellerSnapshot struct {
	ID     string  `gorm:"column:id" json:"id"`
	Name   string  `gorm:"column:name" json:"name"`
	Avatar *string `gorm:"column:avatar" json:"avatar,omitempty"`
	Rating float64 `gorm:"column:rating" json:"rating"`
}

// Item is an owned object; listed items appear in the market instead of the
// owner's inventory.
type Item struct {
	ID           string              `gorm:"column:id;primaryKey" json:"id"`
	OwnerUserID  string              `gorm:"column:owner_user_id;not null;index:items_owner_user_id_idx" json:"ownerUserId"`
	Title        string              `gorm:"column:title;not null" json:"title"`
	Category     string              `gorm:"column:category;not null;index:items_category_idx" json:"category"`
	Authenticity int                 `gorm:"column:authenticity;not null" json:"authenticity"`
	Price        decimal.NullDecimal `gorm:"column:price;type:numeric(12,2)" json:"price"`
	Description  string              `gorm:"column:description;not null" json:"description"`
	Image        string              `gorm:"column:image;not null" json:"image"`
	Brand        *string             `gorm:"column:brand" json:"brand,omitempty"`
	Model        *string             `gorm:"column:model" json:"model,omitempty"`
	Listed       bool                `gorm:"column:listed;not null" json:"listed"`
	ListedAt     *time.Time          `gorm:"column:listed_at;index:items_listed_at_idx" json:"listedAt,omitempty"`
	Seller       SellerSnapshot      `gorm:"embedded;embeddedPrefix:seller_" json:"seller"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime:false" json:"createdAt"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`

	// Ephemeral marks market entries synthesized in memory when the store was unreachable.
	Ephemeral bool `gorm:"-" json:"ephemeral,omitempty"`
}

func (Item) TableName() string { return "items" }

func (Item) Collection() enums.Collection { return enums.CollectionItems }

func (i *Item) PrimaryKey() string { return i.ID }

func (i *Item) Stamp(now time.Time) { stamp(&i.CreatedAt, &i.UpdatedAt, now) }
