// Package content converts rich message payloads into the one-line text
// summaries shown in room timelines.
package content

import (
	"fmt"
	"net/url"
	"strings"
)

// MsgType identifies the kind of a message payload
type MsgType string

const (
	MsgText     MsgType = "m.text"
	MsgNotice   MsgType = "m.notice"
	MsgEmote    MsgType = "m.emote"
	MsgAudio    MsgType = "m.audio"
	MsgFile     MsgType = "m.file"
	MsgImage    MsgType = "m.image"
	MsgVideo    MsgType = "m.video"
	MsgLocation MsgType = "m.location"
)

const (
	// UnsupportedPlaceholder is shown for message types we cannot render
	UnsupportedPlaceholder = "Unsupported message type"

	// EncryptedPlaceholder is shown for attachments sent as encrypted files
	EncryptedPlaceholder = "Encrypted media is not implemented"
)

// MessageContent is the payload of a room message event
type MessageContent struct {
	MsgType MsgType        `json:"msgtype"`
	Body    string         `json:"body"`
	URL     string         `json:"url,omitempty"`
	File    *EncryptedFile `json:"file,omitempty"`
	GeoURI  string         `json:"geo_uri,omitempty"`
	Info    *FileInfo      `json:"info,omitempty"`
}

// EncryptedFile describes an attachment uploaded in encrypted form
type EncryptedFile struct {
	URL string `json:"url"`
}

// FileInfo carries optional attachment metadata
type FileInfo struct {
	MimeType string `json:"mimetype,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Duration int64  `json:"duration,omitempty"` // Milliseconds
}

// NewText creates a plain text payload
func NewText(body string) MessageContent {
	return MessageContent{MsgType: MsgText, Body: body}
}

// Renderer turns payloads into display text. Media references are resolved
// against the homeserver base address.
type Renderer struct {
	Homeserver *url.URL
}

// NewRenderer creates a renderer for the given homeserver
func NewRenderer(homeserver *url.URL) Renderer {
	return Renderer{Homeserver: homeserver}
}

// Render converts a payload into its display text
func (r Renderer) Render(c MessageContent) string {
	switch c.MsgType {
	case MsgText, MsgNotice:
		return c.Body
	case MsgEmote:
		return "* " + c.Body
	case MsgAudio:
		return r.media("Audio", c)
	case MsgFile:
		return r.media("File", c)
	case MsgImage:
		return r.media("Image", c)
	case MsgVideo:
		return r.media("Video", c)
	case MsgLocation:
		if c.GeoURI == "" {
			return "Location: " + c.Body
		}
		return fmt.Sprintf("Location: %s (%s)", c.Body, c.GeoURI)
	default:
		return UnsupportedPlaceholder
	}
}

func (r Renderer) media(kind string, c MessageContent) string {
	if c.File != nil {
		return EncryptedPlaceholder
	}
	line := kind + ": " + c.Body
	if c.Info != nil && c.Info.Size > 0 {
		line += " [" + humanSize(c.Info.Size) + "]"
	}
	if link, ok := ResolveMediaURL(r.Homeserver, c.URL); ok {
		line += " " + link
	}
	return line
}

// ResolveMediaURL maps an mxc://server/mediaID reference to its download URL
// on the homeserver. It reports false when the reference is malformed or
// there is no homeserver to resolve against.
func ResolveMediaURL(homeserver *url.URL, mxc string) (string, bool) {
	if homeserver == nil || !strings.HasPrefix(mxc, "mxc://") {
		return "", false
	}
	server, mediaID, ok := strings.Cut(strings.TrimPrefix(mxc, "mxc://"), "/")
	if !ok || server == "" || mediaID == "" || strings.Contains(mediaID, "/") {
		return "", false
	}
	u := *homeserver
	u.Path = strings.TrimSuffix(u.Path, "/") + "/_matrix/media/v3/download/" + server + "/" + mediaID
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), true
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
