package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// MessageRecord is the wire shape of a message produced by the authoring
// collaborator. Upstream producers are loosely typed: the tags field may be
// missing, null, a scalar or an object, and its members may be non-strings.
// ToMessage is the single place that coerces such input.
type MessageRecord struct {
	ID         string          `json:"id" db:"id"`
	TitleHR    string          `json:"titleHr" db:"title_hr"`
	TitleEN    string          `json:"titleEn" db:"title_en"`
	BodyHR     string          `json:"bodyHr" db:"body_hr"`
	BodyEN     string          `json:"bodyEn" db:"body_en"`
	Tags       json.RawMessage `json:"tags" db:"tags"`
	ActiveFrom *time.Time      `json:"activeFrom" db:"active_from"`
	ActiveTo   *time.Time      `json:"activeTo" db:"active_to"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	Published  bool            `json:"published" db:"published"`
	DeletedAt  *time.Time      `json:"deletedAt" db:"deleted_at"`
}

// TableName returns the database table name for MessageRecord.
func (r MessageRecord) TableName() string {
	return tablePrefix + "message"
}

// ParseTags decodes a raw tags field. Anything that is not a JSON array
// yields an empty list; non-string and empty members are dropped. The
// result is normalized.
func ParseTags(raw json.RawMessage) []Tag {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []Tag{}
	}
	var members []json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return []Tag{}
	}
	tags := make([]Tag, 0, len(members))
	for _, member := range members {
		var s string
		if err := json.Unmarshal(member, &s); err != nil || s == "" {
			continue
		}
		tags = append(tags, Tag(s))
	}
	return NormalizeTags(tags)
}

// EncodeTags is the inverse of ParseTags for storage.
func EncodeTags(tags []Tag) json.RawMessage {
	if tags == nil {
		tags = []Tag{}
	}
	raw, _ := json.Marshal(tags)
	return raw
}

// ToMessage converts the record into a Message with normalized tags.
func (r MessageRecord) ToMessage() Message {
	return Message{
		ID:         r.ID,
		Title:      LocalizedText{HR: r.TitleHR, EN: r.TitleEN},
		Body:       LocalizedText{HR: r.BodyHR, EN: r.BodyEN},
		Tags:       ParseTags(r.Tags),
		ActiveFrom: r.ActiveFrom,
		ActiveTo:   r.ActiveTo,
		CreatedAt:  r.CreatedAt,
		Published:  r.Published,
		DeletedAt:  r.DeletedAt,
	}
}

// NewMessageRecord converts m into its storage shape.
func NewMessageRecord(m Message) MessageRecord {
	return MessageRecord{
		ID:         m.ID,
		TitleHR:    m.Title.HR,
		TitleEN:    m.Title.EN,
		BodyHR:     m.Body.HR,
		BodyEN:     m.Body.EN,
		Tags:       EncodeTags(NormalizeTags(m.Tags)),
		ActiveFrom: m.ActiveFrom,
		ActiveTo:   m.ActiveTo,
		CreatedAt:  m.CreatedAt,
		Published:  m.Published,
		DeletedAt:  m.DeletedAt,
	}
}
