package session

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
	"github.com/angelmondragon/plexo-core/pkg/enums"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var embeddedFallback []byte

// Fallback is the static content shown when the store cannot be reached or
// holds nothing to show yet.
type Fallback struct {
	User      fallbackUser   `yaml:"user"`
	Inventory []fallbackItem `yaml:"inventory"`
	Market    []fallbackItem `yaml:"market"`
	Chats     []fallbackChat `yaml:"chats"`
}

type fallbackUser struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Email    string  `yaml:"email"`
	Bio      string  `yaml:"bio"`
	Interest string  `yaml:"interest"`
	Avatar   *string `yaml:"avatar"`
	Rating   float64 `yaml:"rating"`
}

type fallbackSeller struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Avatar *string `yaml:"avatar"`
	Rating float64 `yaml:"rating"`
}

type fallbackItem struct {
	ID           string          `yaml:"id"`
	Title        string          `yaml:"title"`
	Category     string          `yaml:"category"`
	Authenticity int             `yaml:"authenticity"`
	Price        string          `yaml:"price"`
	Description  string          `yaml:"description"`
	Image        string          `yaml:"image"`
	Brand        *string         `yaml:"brand"`
	Model        *string         `yaml:"model"`
	Seller       *fallbackSeller `yaml:"seller"`
}

type fallbackMessage struct {
	ID   string `yaml:"id"`
	From string `yaml:"from"`
	Text string `yaml:"text"`
	Time string `yaml:"time"`
}

type fallbackChat struct {
	ID       string            `yaml:"id"`
	Contact  string            `yaml:"contact"`
	Avatar   *string           `yaml:"avatar"`
	Messages []fallbackMessage `yaml:"messages"`
}

// LoadFallback reads fallback content from path, or the built-in content
// when path is empty.
func LoadFallback(path string) (*Fallback, error) {
	raw := embeddedFallback
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading fallback content: %w", err)
		}
		raw = data
	}
	return ParseFallback(raw)
}

// ParseFallback decodes fallback YAML. Unknown keys are rejected.
func ParseFallback(raw []byte) (*Fallback, error) {
	var fb Fallback
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fb); err != nil {
		return nil, fmt.Errorf("decoding fallback content: %w", err)
	}
	if err := fb.validate(); err != nil {
		return nil, err
	}
	return &fb, nil
}

func (f *Fallback) validate() error {
	if f.User.ID == "" || f.User.Email == "" {
		return fmt.Errorf("fallback user needs an id and email")
	}
	if f.User.Interest != "" {
		if _, err := enums.ParseInterest(f.User.Interest); err != nil {
			return fmt.Errorf("fallback user: %w", err)
		}
	}
	for _, group := range [][]fallbackItem{f.Inventory, f.Market} {
		for _, it := range group {
			if it.ID == "" {
				return fmt.Errorf("fallback item %q has no id", it.Title)
			}
			if it.Price != "" {
				if _, err := decimal.NewFromString(it.Price); err != nil {
					return fmt.Errorf("fallback item %s price: %w", it.ID, err)
				}
			}
		}
	}
	for _, it := range f.Market {
		if it.Seller == nil || it.Seller.Name == "" {
			return fmt.Errorf("fallback market item %s has no seller", it.ID)
		}
	}
	for _, c := range f.Chats {
		for _, m := range c.Messages {
			if _, err := enums.ParseSenderRole(m.From); err != nil {
				return fmt.Errorf("fallback chat %s: %w", c.ID, err)
			}
			if _, err := time.Parse(models.DisplayTimeLayout, m.Time); err != nil {
				return fmt.Errorf("fallback chat %s message %s time: %w", c.ID, m.ID, err)
			}
		}
	}
	return nil
}

// DemoUser returns a fresh copy of the demo account.
func (f *Fallback) DemoUser(now time.Time) models.User {
	interest := enums.DefaultInterest
	if parsed, err := enums.ParseInterest(f.User.Interest); err == nil {
		interest = parsed
	}
	return models.User{
		ID:        f.User.ID,
		Email:     f.User.Email,
		Name:      f.User.Name,
		Bio:       f.User.Bio,
		Interest:  interest,
		Avatar:    cloneString(f.User.Avatar),
		Rating:    f.User.Rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DemoInventory returns the demo account's unlisted items.
func (f *Fallback) DemoInventory(ownerID string, now time.Time) []models.Item {
	out := make([]models.Item, 0, len(f.Inventory))
	for _, it := range f.Inventory {
		out = append(out, it.model(ownerID, now))
	}
	return out
}

// DemoMarket returns the demo listings in market order.
func (f *Fallback) DemoMarket(now time.Time) []models.Item {
	out := make([]models.Item, 0, len(f.Market))
	for _, it := range f.Market {
		item := it.model("", now)
		item.Listed = true
		item.Seller = models.SellerSnapshot{
			ID:     it.Seller.ID,
			Name:   it.Seller.Name,
			Avatar: cloneString(it.Seller.Avatar),
			Rating: it.Seller.Rating,
		}
		item.OwnerUserID = it.Seller.ID
		out = append(out, item)
	}
	views.SortMarket(out)
	return out
}

// DemoChats returns the demo conversations. Message times are placed on the
// day of now.
func (f *Fallback) DemoChats(userID string, now time.Time) []views.ChatSummary {
	out := make([]views.ChatSummary, 0, len(f.Chats))
	for _, c := range f.Chats {
		msgs := make([]models.Message, 0, len(c.Messages))
		for i, m := range c.Messages {
			msgs = append(msgs, m.model(c.ID, int64(i+1), now))
		}
		updated := now
		if n := len(msgs); n > 0 {
			updated = msgs[n-1].Timestamp
		}
		chat := models.Chat{
			ID:          c.ID,
			UserID:      userID,
			ContactID:   "contact-" + c.ID,
			ContactName: c.Contact,
			Avatar:      cloneString(c.Avatar),
			CreatedAt:   updated,
			UpdatedAt:   updated,
		}
		out = append(out, views.Summarize(chat, msgs))
	}
	views.SortChats(out)
	return out
}

func (it fallbackItem) model(ownerID string, now time.Time) models.Item {
	item := models.Item{
		ID:           it.ID,
		OwnerUserID:  ownerID,
		Title:        it.Title,
		Category:     it.Category,
		Authenticity: it.Authenticity,
		Description:  it.Description,
		Image:        it.Image,
		Brand:        cloneString(it.Brand),
		Model:        cloneString(it.Model),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if it.Price != "" {
		item.Price = decimal.NewNullDecimal(decimal.RequireFromString(it.Price))
	}
	return item
}

func (m fallbackMessage) model(chatID string, seq int64, now time.Time) models.Message {
	clock, _ := time.Parse(models.DisplayTimeLayout, m.Time)
	local := now.Local()
	ts := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, local.Location())
	return models.Message{
		ID:          m.ID,
		ChatID:      chatID,
		Sender:      enums.SenderRole(m.From),
		Text:        m.Text,
		Timestamp:   ts.UTC(),
		DisplayTime: m.Time,
		Seq:         seq,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
