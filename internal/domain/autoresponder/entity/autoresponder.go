package entity

import "time"

// Kind is the autoresponder variant tag. The three variants of the original
// configuration are one sum type here instead of optional-field duck typing.
type Kind string

const (
	// KindDirectMessage answers inbound DMs.
	KindDirectMessage Kind = "direct_message"
	// KindComment answers comments on specific posts with a private reply
	// (and optionally a public reply from ReplyText).
	KindComment Kind = "comment"
	// KindGeneral answers comments on any assigned post, or all posts when
	// no assignment is set.
	KindGeneral Kind = "general"
)

// Valid reports whether the kind is one of the known variants
func (k Kind) Valid() bool {
	switch k {
	case KindDirectMessage, KindComment, KindGeneral:
		return true
	}
	return false
}

// Autoresponder is a configured rule mapping inbound trigger conditions to an
// automated outbound message. Position is the caller-supplied priority: the
// matcher walks candidates in position order and the first match wins, so a
// keyword-less catch-all placed early shadows everything after it.
type Autoresponder struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name"`
	IsActive    bool      `json:"is_active"`
	UseKeywords bool      `json:"use_keywords"`
	Keywords    []string  `json:"keywords"`
	MessageText string    `json:"message_text"`
	ReplyText   string    `json:"reply_text,omitempty"` // public comment reply (comment/general kinds)
	MediaIDs    []string  `json:"media_ids,omitempty"`  // post assignments (comment/general kinds)
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AppliesToMedia reports whether the autoresponder covers a comment on the
// given post. DM responders never apply; a general responder without
// assignments covers every post.
func (a Autoresponder) AppliesToMedia(mediaID string) bool {
	switch a.Kind {
	case KindDirectMessage:
		return false
	case KindGeneral:
		if len(a.MediaIDs) == 0 {
			return true
		}
	}
	for _, id := range a.MediaIDs {
		if id == mediaID {
			return true
		}
	}
	return false
}

// SentLogEntry records one automated send to a counterparty. Append-only;
// used to audit cool-down behavior.
type SentLogEntry struct {
	ID              string    `json:"id"`
	AutoresponderID string    `json:"autoresponder_id"`
	AccountID       string    `json:"account_id"`
	CounterpartyID  string    `json:"counterparty_id"`
	SentAt          time.Time `json:"sent_at"`
}
