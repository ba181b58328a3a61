// Package frame speaks the Farcaster frame protocol: it authenticates button
// clicks and describes the next frame to show.
package frame

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
)

// ErrInvalidMessage wraps every authentication failure.
var ErrInvalidMessage = errors.New("invalid frame message")

// Action 经过验证的一次点击
type Action struct {
	FID         uint64
	ButtonIndex int
}

// Authenticator validates a raw frame POST body.
type Authenticator interface {
	Validate(ctx context.Context, body []byte) (*Action, error)
}

// Packet is the JSON body a frame client POSTs.
type Packet struct {
	UntrustedData struct {
		FID         uint64 `json:"fid"`
		URL         string `json:"url"`
		MessageHash string `json:"messageHash"`
		Timestamp   int64  `json:"timestamp"`
		ButtonIndex int    `json:"buttonIndex"`
	} `json:"untrustedData"`
	TrustedData struct {
		MessageBytes string `json:"messageBytes"`
	} `json:"trustedData"`
}

func parsePacket(body []byte) (*Packet, error) {
	var p Packet
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return &p, nil
}

// UntrustedValidator believes whatever untrustedData says. Development only.
type UntrustedValidator struct{}

func (UntrustedValidator) Validate(ctx context.Context, body []byte) (*Action, error) {
	p, err := parsePacket(body)
	if err != nil {
		return nil, err
	}
	if p.UntrustedData.FID == 0 {
		return nil, fmt.Errorf("%w: missing fid", ErrInvalidMessage)
	}
	return &Action{FID: p.UntrustedData.FID, ButtonIndex: p.UntrustedData.ButtonIndex}, nil
}

// Button 按钮，Index 从 1 开始
type Button struct {
	Index int
	Label string
}

// Page is everything a frame response advertises.
type Page struct {
	Image   string
	PostURL string
	Buttons []Button
}

func buttons(labels ...string) []Button {
	out := make([]Button, len(labels))
	for i, l := range labels {
		out[i] = Button{Index: i + 1, Label: l}
	}
	return out
}

// StartButtons 首页只有开始按钮
func StartButtons() []Button {
	return buttons("Start Game")
}

// GameButtons 游戏中是四个方向，结束后只有再来一局
func GameButtons(over bool) []Button {
	if over {
		return buttons("Play Again")
	}
	return buttons("⬆️", "⬇️", "⬅️", "➡️")
}

// TemplateName is the name Template is registered under.
const TemplateName = "frame"

var Template = template.Must(template.New(TemplateName).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta property="fc:frame" content="vNext" />
    <meta property="fc:frame:image" content="{{.Image}}" />
    <meta property="fc:frame:image:aspect_ratio" content="1:1" />
    <meta property="og:image" content="{{.Image}}" />
    <meta property="fc:frame:post_url" content="{{.PostURL}}" />
{{- range .Buttons}}
    <meta property="fc:frame:button:{{.Index}}" content="{{.Label}}" />
{{- end}}
</head>
</html>
`))
