package services

import (
	"context"

	"property-market-backend/internal/metrics"
	"property-market-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// MessageDelivery reaches a message's receiver over the websocket when online, else over APNs
type MessageDelivery struct {
	hub   *WSHub
	push  *PushService
	users UserStore
}

// NewMessageDelivery creates a delivery notifier; push may be nil when APNs is not configured
func NewMessageDelivery(hub *WSHub, push *PushService, users UserStore) *MessageDelivery {
	return &MessageDelivery{hub: hub, push: push, users: users}
}

// MessageSent implements MessageNotifier. Failures are logged only.
func (d *MessageDelivery) MessageSent(ctx context.Context, msg *models.Message) {
	if d.hub != nil && d.hub.IsOnline(msg.ReceiverID) {
		err := d.hub.NotifyMessage(msg)
		if err == nil {
			metrics.MessageDeliveries.WithLabelValues("websocket").Inc()
			return
		}
		log.Warn().Err(err).Str("user_id", msg.ReceiverID).Msg("Failed to deliver message over websocket")
	}

	if d.push == nil {
		return
	}

	receiver, err := d.users.GetByID(ctx, msg.ReceiverID)
	if err != nil {
		log.Error().Err(err).Str("user_id", msg.ReceiverID).Msg("Failed to load receiver for push")
		return
	}
	if receiver.PushToken == nil {
		return
	}

	title := "New message"
	if msg.Sender != nil && msg.Sender.Name != "" {
		title = msg.Sender.Name
	}

	err = d.push.SendAlert(ctx, *receiver.PushToken, title, msg.Content, map[string]string{
		"propertyId": msg.PropertyID,
		"messageId":  msg.ID,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", msg.ReceiverID).Msg("Failed to push message notification")
		return
	}
	metrics.MessageDeliveries.WithLabelValues("apns").Inc()
}
