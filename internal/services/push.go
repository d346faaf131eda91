package services

import (
	"context"
	"fmt"

	"property-market-backend/internal/config"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

const pushPreviewLength = 120

type apnsPusher interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

// PushService sends APNs alerts to users' devices
type PushService struct {
	client apnsPusher
	topic  string
}

// NewPushService creates a token-based APNs client from a .p8 key file
func NewPushService(cfg config.APNsConfig) (*PushService, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushService{client: client, topic: cfg.Topic}, nil
}

// SendAlert pushes a visible alert to a single device
func (s *PushService) SendAlert(ctx context.Context, deviceToken, title, body string, custom map[string]string) error {
	p := payload.NewPayload().AlertTitle(title).AlertBody(preview(body)).Sound("default")
	for k, v := range custom {
		p = p.Custom(k, v)
	}

	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     p,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}

func preview(body string) string {
	r := []rune(body)
	if len(r) <= pushPreviewLength {
		return body
	}
	return string(r[:pushPreviewLength]) + "…"
}
