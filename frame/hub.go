package frame

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const frameActionType = "MESSAGE_TYPE_FRAME_ACTION"

// HubValidator asks a Farcaster hub to verify the signed message in
// trustedData. FID and button index come from the verified message only.
type HubValidator struct {
	HubURL string
	Client *http.Client
}

func NewHubValidator(hubURL string) *HubValidator {
	return &HubValidator{
		HubURL: strings.TrimRight(hubURL, "/"),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type validateResponse struct {
	Valid   bool `json:"valid"`
	Message struct {
		Data struct {
			Type            string `json:"type"`
			FID             uint64 `json:"fid"`
			FrameActionBody struct {
				URL         string `json:"url"`
				ButtonIndex int    `json:"buttonIndex"`
			} `json:"frameActionBody"`
		} `json:"data"`
	} `json:"message"`
}

func (v *HubValidator) Validate(ctx context.Context, body []byte) (*Action, error) {
	p, err := parsePacket(body)
	if err != nil {
		return nil, err
	}
	raw := strings.TrimPrefix(p.TrustedData.MessageBytes, "0x")
	if raw == "" {
		return nil, fmt.Errorf("%w: missing trustedData.messageBytes", ErrInvalidMessage)
	}
	msg, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: messageBytes: %v", ErrInvalidMessage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.HubURL+"/v1/validateMessage", bytes.NewReader(msg))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := v.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hub response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// hub 对无法解析的消息返回 4xx
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("%w: hub status %d: %s", ErrInvalidMessage, resp.StatusCode, bytes.TrimSpace(data))
		}
		return nil, fmt.Errorf("hub status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var result validateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("hub response: %w", err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("%w: hub rejected signature", ErrInvalidMessage)
	}
	if result.Message.Data.Type != frameActionType {
		return nil, fmt.Errorf("%w: unexpected message type %q", ErrInvalidMessage, result.Message.Data.Type)
	}

	return &Action{
		FID:         result.Message.Data.FID,
		ButtonIndex: result.Message.Data.FrameActionBody.ButtonIndex,
	}, nil
}
