package ephemeral

import "time"

// Message types governed by this package.
const (
	TypeImage = "ephemeral_image"
	TypeVideo = "ephemeral_video"
)

const (
	LabelCaptureForbidden = "Запись экрана запрещена"
	LabelTapToView        = "Нажмите, чтобы посмотреть"
	PlaceholderImage      = "Фото исчезло"
	PlaceholderVideo      = "Видео исчезло"
)

// Record is an ephemeral message as delivered by the message store.
type Record struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	MediaURL    string  `json:"mediaUrl"`
	IsEphemeral bool    `json:"isEphemeral"`
	ExpiresAt   *string `json:"expiresAt"`
	CreatedAt   string  `json:"createdAt,omitempty"`
}

// FormatTimestamp renders t the way Record.ExpiresAt carries it.
func FormatTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

// ViewKind is the tri-state render result.
type ViewKind string

const (
	ViewOverlay  ViewKind = "overlay"
	ViewMedia    ViewKind = "media"
	ViewVanished ViewKind = "vanished"
)

// Overlay describes the cover drawn over blurred media.
type Overlay struct {
	Label  string `json:"label"`
	Opaque bool   `json:"opaque"`
}

// View is what the rendering layer should draw for one message.
type View struct {
	Kind        ViewKind `json:"kind"`
	State       string   `json:"state"`
	MediaType   string   `json:"media_type"`
	MediaURL    string   `json:"media_url,omitempty"`
	Blurred     bool     `json:"blurred"`
	Overlay     *Overlay `json:"overlay,omitempty"`
	Controls    bool     `json:"controls"`
	ContextMenu bool     `json:"context_menu"`
	Placeholder string   `json:"placeholder,omitempty"`
	Countdown   string   `json:"countdown,omitempty"`
}

// Placeholder returns the text shown after a message of mediaType has vanished.
func Placeholder(mediaType string) string {
	if mediaType == TypeVideo {
		return PlaceholderVideo
	}
	return PlaceholderImage
}

// Render builds the view for a gate state. blocked selects the capture warning.
func Render(state State, blocked bool, mediaType, mediaURL, countdown string) View {
	v := View{State: state.String(), MediaType: mediaType, Countdown: countdown}
	switch state {
	case StateVanished:
		v.Kind = ViewVanished
		v.Placeholder = Placeholder(mediaType)
		v.Countdown = ""
	case StateRevealed:
		v.Kind = ViewMedia
		v.MediaURL = mediaURL
		v.Controls = mediaType == TypeVideo
		v.ContextMenu = true
	default:
		v.Kind = ViewOverlay
		v.MediaURL = mediaURL
		v.Blurred = true
		if blocked {
			v.Overlay = &Overlay{Label: LabelCaptureForbidden, Opaque: true}
		} else {
			v.Overlay = &Overlay{Label: LabelTapToView}
		}
	}
	return v
}
