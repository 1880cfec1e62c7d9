package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/plexo-core/internal/views"
	"github.com/angelmondragon/plexo-core/pkg/db/models"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatPrice(item models.Item) string {
	if !item.Price.Valid {
		return "-"
	}
	return item.Price.Decimal.StringFixed(2)
}

func printUsers(w io.Writer, users []models.User, asJSON bool) error {
	if asJSON {
		if users == nil {
			users = []models.User{}
		}
		return writeJSON(w, users)
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.Email, u.Name, u.Interest.String(), fmt.Sprintf("%.1f", u.Rating), formatTime(u.CreatedAt)})
	}
	return writeTable(w, []string{"ID", "EMAIL", "NAME", "INTEREST", "RATING", "CREATED"}, rows)
}

func printItems(w io.Writer, items []models.Item, asJSON bool) error {
	if asJSON {
		if items == nil {
			items = []models.Item{}
		}
		return writeJSON(w, items)
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		listed := "-"
		if it.Listed && it.ListedAt != nil {
			listed = formatTime(*it.ListedAt)
		}
		rows = append(rows, []string{it.ID, it.Title, it.Category, formatPrice(it), it.Seller.Name, listed})
	}
	return writeTable(w, []string{"ID", "TITLE", "CATEGORY", "PRICE", "SELLER", "LISTED"}, rows)
}

func printChats(w io.Writer, chats []views.ChatSummary, asJSON bool) error {
	if asJSON {
		if chats == nil {
			chats = []views.ChatSummary{}
		}
		return writeJSON(w, chats)
	}
	rows := make([][]string, 0, len(chats))
	for _, c := range chats {
		last := "-"
		if c.LastMessage != nil {
			last = c.LastMessage.Text
		}
		rows = append(rows, []string{c.ID, c.ContactName, fmt.Sprint(len(c.Messages)), last, formatTime(c.UpdatedAt)})
	}
	return writeTable(w, []string{"ID", "CONTACT", "MESSAGES", "LAST", "UPDATED"}, rows)
}

func printMessages(w io.Writer, msgs []models.Message, asJSON bool) error {
	if asJSON {
		if msgs == nil {
			msgs = []models.Message{}
		}
		return writeJSON(w, msgs)
	}
	rows := make([][]string, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, []string{fmt.Sprint(m.Seq), m.Sender.String(), formatTime(m.Timestamp), m.Text})
	}
	return writeTable(w, []string{"SEQ", "SENDER", "AT", "TEXT"}, rows)
}
