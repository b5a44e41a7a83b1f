package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FileKind discriminates between the attachment types and message links
type FileKind string

const (
	// KindDocument is a generic file attachment
	KindDocument FileKind = "document"
	// KindPhoto is a compressed photo
	KindPhoto FileKind = "photo"
	// KindVideo is a video attachment
	KindVideo FileKind = "video"
	// KindAudio is an audio attachment
	KindAudio FileKind = "audio"
	// KindLink is a reference to a message that has to be resolved by the fetcher
	KindLink FileKind = "link"
)

// ChatRef identifies a chat either by numeric id or by public username (@name)
type ChatRef struct {
	Id       int64
	Username string
}

// IsEmpty returns true if neither id nor username is set
func (c ChatRef) IsEmpty() bool {
	return c.Id == 0 && c.Username == ""
}

func (c ChatRef) String() string {
	if c.Username != "" {
		return c.Username
	}
	return strconv.FormatInt(c.Id, 10)
}

// MarshalJSON writes the username as a string or the id as a number
func (c ChatRef) MarshalJSON() ([]byte, error) {
	if c.Username != "" {
		return json.Marshal(c.Username)
	}
	return json.Marshal(c.Id)
}

// UnmarshalJSON accepts either a number or a string
func (c *ChatRef) UnmarshalJSON(data []byte) error {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		*c = ChatRef{Id: id}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("chat id must be a number or a username: %w", err)
	}
	parsed, err := strconv.ParseInt(name, 10, 64)
	if err == nil {
		*c = ChatRef{Id: parsed}
		return nil
	}
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	*c = ChatRef{Username: name}
	return nil
}

// FileRef is either a chat attachment or a link to a message containing one. Never modified after
// being added to a session
type FileRef struct {
	Kind      FileKind `json:"type"`
	FileId    string   `json:"file_id,omitempty"`
	FileName  string   `json:"file_name,omitempty"`
	FileSize  int64    `json:"file_size,omitempty"`
	MessageId int      `json:"message_id"`
	Chat      ChatRef  `json:"chat_id"`
}

// IsLink returns true if the reference still has to be resolved
func (f FileRef) IsLink() bool {
	return f.Kind == KindLink
}

// DisplayName returns the file name, or a placeholder for links
func (f FileRef) DisplayName() string {
	if f.FileName != "" {
		return f.FileName
	}
	if f.IsLink() {
		return "File from Telegram link"
	}
	return "unnamed " + string(f.Kind)
}

// Validate checks that all fields required for the kind are present
func (f FileRef) Validate() error {
	switch f.Kind {
	case KindLink:
		if f.Chat.IsEmpty() || f.MessageId <= 0 {
			return errors.New("link reference requires chat and message id")
		}
	case KindDocument, KindPhoto, KindVideo, KindAudio:
		if f.FileId == "" {
			return errors.New("attachment reference requires a file id")
		}
	default:
		return fmt.Errorf("unknown file type %q", f.Kind)
	}
	return nil
}

// ParseMessageLink parses t.me links to private (t.me/c/<id>/<msg>) or public (t.me/<name>/<msg>) messages
func ParseMessageLink(link string) (FileRef, bool) {
	link = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(link), "/"))
	for _, prefix := range []string{"https://", "http://"} {
		link = strings.TrimPrefix(link, prefix)
	}
	link = strings.TrimPrefix(link, "www.")
	if !strings.HasPrefix(link, "t.me/") && !strings.HasPrefix(link, "telegram.me/") {
		return FileRef{}, false
	}
	parts := strings.Split(link, "/")
	if len(parts) < 3 {
		return FileRef{}, false
	}
	messageId, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil || messageId <= 0 {
		return FileRef{}, false
	}
	result := FileRef{Kind: KindLink, MessageId: messageId}
	if parts[1] == "c" {
		if len(parts) < 4 {
			return FileRef{}, false
		}
		internalId, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
		if err != nil || internalId <= 0 {
			return FileRef{}, false
		}
		chatId, err := strconv.ParseInt("-100"+strconv.FormatInt(internalId, 10), 10, 64)
		if err != nil {
			return FileRef{}, false
		}
		result.Chat = ChatRef{Id: chatId}
		return result, true
	}
	username := parts[len(parts)-2]
	if username == "" {
		return FileRef{}, false
	}
	result.Chat = ChatRef{Username: "@" + username}
	return result, true
}
