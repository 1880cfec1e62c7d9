package models

import (
	"time"

	"github.com/angelmondragon/plexo-core/pkg/enums"
)

// DisplayTimeLayout renders message times as hour:minute.
const DisplayTimeLayout = "15:04"

// Message is immutable once stored.
type Message struct {
	ID          string           `gorm:"column:id;primaryKey" json:"id"`
	ChatID      string           `gorm:"column:chat_id;not null;index:messages_chat_id_idx" json:"chatId"`
	Sender      enums.SenderRole `gorm:"column:sender;not null" json:"sender"`
	Text        string           `gorm:"column:text;not null" json:"text"`
	Timestamp   time.Time        `gorm:"column:timestamp;not null;index:messages_timestamp_idx" json:"timestamp"`
	DisplayTime string           `gorm:"column:display_time;not null" json:"time"`
	Seq         int64            `gorm:"column:seq;not null" json:"seq"`
}

func (Message) TableName() string { return "messages" }

func (Message) Collection() enums.Collection { return enums.CollectionMessages }

func (m *Message) PrimaryKey() string { return m.ID }

// Stamp fills Timestamp and DisplayTime when absent; messages carry no update time.
func (m *Message) Stamp(now time.Time) {
	if m.Timestamp.IsZero() {
		m.Timestamp = now.UTC()
	} else {
		m.Timestamp = m.Timestamp.UTC()
	}
	if m.DisplayTime == "" {
		m.DisplayTime = m.Timestamp.Local().Format(DisplayTimeLayout)
	}
}

func (m *Message) Sequence() int64 { return m.Seq }

func (m *Message) AssignSequence(seq int64) { m.Seq = seq }
