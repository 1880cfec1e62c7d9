package lifecycle

import (
	"strings"
	"time"

	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	pkgerrors "github.com/angelmondragon/plexo-core/pkg/errors"
	"github.com/angelmondragon/plexo-core/pkg/validate"
	"github.com/shopspring/decimal"
)

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required"`
	Bio      string  `json:"bio" validate:"max=500"`
	Interest string  `json:"interest"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Prepare normalizes the input, validates it and resolves the interest tag.
func (in RegisterInput) Prepare() (RegisterInput, enums.Interest, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil {
		return in, "", err
	}
	interest := enums.DefaultInterest
	if strings.TrimSpace(in.Interest) != "" {
		parsed, err := enums.ParseInterest(in.Interest)
		if err != nil {
			return in, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid interest").
				WithDetails(map[string]string{"interest": "must be one of ART PHOTO MUSIC"})
		}
		interest = parsed
	}
	return in, interest, nil
}

// ProfileUpdate carries the profile fields a user may change. Nil fields are kept.
type ProfileUpdate struct {
	Name     *string         `json:"name,omitempty"`
	Bio      *string         `json:"bio,omitempty"`
	Interest *enums.Interest `json:"interest,omitempty"`
	Avatar   *string         `json:"avatar,omitempty"`
}

// Validate rejects an empty name and unknown interest tags.
func (p ProfileUpdate) Validate() error {
	if p.Interest != nil && !p.Interest.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid interest")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
	}
	return nil
}

func (p ProfileUpdate) Apply(u *models.User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Interest != nil {
		u.Interest = *p.Interest
	}
	if p.Avatar != nil {
		u.Avatar = p.Avatar
	}
}

// ItemDraft is produced by the capture flow. Its content is stored as given.
type ItemDraft struct {
	Title        string              `json:"title"`
	Category     string              `json:"category"`
	Authenticity int                 `json:"authenticity"`
	Price        decimal.NullDecimal `json:"price"`
	Description  string              `json:"description"`
	Image        string              `json:"image"`
	Brand        *string             `json:"brand,omitempty"`
	Model        *string             `json:"model,omitempty"`
}

func (d ItemDraft) Item(id, ownerID string) *models.Item {
	return &models.Item{
		ID:           id,
		OwnerUserID:  ownerID,
		Title:        d.Title,
		Category:     d.Category,
		Authenticity: d.Authenticity,
		Price:        d.Price,
		Description:  d.Description,
		Image:        d.Image,
		Brand:        d.Brand,
		Model:        d.Model,
	}
}

// ItemUpdate merges into an unlisted item. Nil fields are kept.
type ItemUpdate struct {
	Title        *string              `json:"title,omitempty"`
	Category     *string              `json:"category,omitempty"`
	Authenticity *int                 `json:"authenticity,omitempty"`
	Price        *decimal.NullDecimal `json:"price,omitempty"`
	Description  *string              `json:"description,omitempty"`
	Image        *string              `json:"image,omitempty"`
	Brand        *string              `json:"brand,omitempty"`
	Model        *string              `json:"model,omitempty"`
}

func (u ItemUpdate) Apply(item *models.Item) {
	if u.Title != nil {
		item.Title = *u.Title
	}
	if u.Category != nil {
		item.Category = *u.Category
	}
	if u.Authenticity != nil {
		item.Authenticity = *u.Authenticity
	}
	if u.Price != nil {
		item.Price = *u.Price
	}
	if u.Description != nil {
		item.Description = *u.Description
	}
	if u.Image != nil {
		item.Image = *u.Image
	}
	if u.Brand != nil {
		item.Brand = u.Brand
	}
	if u.Model != nil {
		item.Model = u.Model
	}
}

// ContactInfo describes the other side of a chat.
type ContactInfo struct {
	Name   string  `json:"name"`
	Avatar *string `json:"avatar,omitempty"`
}

// LinkedItem ties a new chat to the listing it was opened from.
type LinkedItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// MessageInput is a message to append. ID, Timestamp and Sender are filled
// when absent.
type MessageInput struct {
	ID        string           `json:"id,omitempty"`
	Sender    enums.SenderRole `json:"sender,omitempty"`
	Text      string           `json:"text"`
	Timestamp time.Time        `json:"timestamp,omitempty"`
}
