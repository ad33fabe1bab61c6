package model

import "time"

// LocalizedText holds the two supported locale variants of a string.
// HR is always required; EN may be empty when no translation exists.
type LocalizedText struct {
	HR string `json:"hr"`
	EN string `json:"en,omitempty"`
}

// Get returns the variant for locale, or "" when that variant is missing.
func (t LocalizedText) Get(locale Locale) string {
	switch locale {
	case LocaleHR:
		return t.HR
	case LocaleEN:
		return t.EN
	default:
		return ""
	}
}

// Message is an inbox notice as consumed by the targeting engine.
// Messages are authored and mutated by an external collaborator; the engine
// only reads them.
//
// Tags are kept in normalized form by NewMessage and MessageRecord.ToMessage.
// Published and DeletedAt carry the effect of the external lifecycle.
type Message struct {
	ID         string        `json:"id"`
	Title      LocalizedText `json:"title"`
	Body       LocalizedText `json:"body"`
	Tags       []Tag         `json:"tags"`
	ActiveFrom *time.Time    `json:"activeFrom,omitempty"`
	ActiveTo   *time.Time    `json:"activeTo,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	Published  bool          `json:"published"`
	DeletedAt  *time.Time    `json:"deletedAt,omitempty"`
}

// NewMessage creates a published message with normalized tags.
func NewMessage(id string, title, body LocalizedText, tags []Tag, createdAt time.Time) Message {
	return Message{
		ID:        id,
		Title:     title,
		Body:      body,
		Tags:      NormalizeTags(tags),
		CreatedAt: createdAt,
		Published: true,
	}
}

// WithWindow returns a copy of m with the activation window set.
func (m Message) WithWindow(from, to *time.Time) Message {
	m.ActiveFrom = from
	m.ActiveTo = to
	return m
}

// NormalizedTags returns the message tags in canonical form.
func (m Message) NormalizedTags() []Tag {
	return NormalizeTags(m.Tags)
}

// IsVisible reports whether the lifecycle owner exposes the message at all:
// published and not soft-deleted.
func (m Message) IsVisible() bool {
	return m.Published && m.DeletedAt == nil
}

// IsWithinActiveWindow reports whether now lies inside the message's
// activation window. See IsWithinActiveWindow.
func (m Message) IsWithinActiveWindow(now time.Time) bool {
	return IsWithinActiveWindow(m.ActiveFrom, m.ActiveTo, now)
}

// Content returns the push payload for locale, or nil when the message has
// no title for that locale.
func (m Message) Content(locale Locale) *Content {
	title := m.Title.Get(locale)
	if title == "" {
		return nil
	}
	return &Content{Title: title, Body: m.Body.Get(locale), MessageID: m.ID}
}

// HasEnglishContent reports whether an English push payload exists.
func (m Message) HasEnglishContent() bool {
	return m.Content(LocaleEN) != nil
}

// Content is one localized push payload.
type Content struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	MessageID string `json:"messageId,omitempty"`
}
