package momento

import (
	"context"
	"fmt"
	"net/http"
)

// Notifications lists the current user's notifications, newest first.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var list NotificationList
	if err := c.get(ctx, "/notifications", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// UnreadNotificationCount returns the notification badge value.
func (c *Client) UnreadNotificationCount(ctx context.Context) (int, error) {
	var payload UnreadCount
	if err := c.get(ctx, "/notifications/unread-count", nil, &payload); err != nil {
		return 0, err
	}
	return max(payload.Count, 0), nil
}

// MarkNotificationRead flips a single notification to read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("notification id required")
	}
	return c.do(ctx, http.MethodPut, "/notifications/"+notificationID+"/read", nil, nil, nil)
}

// MarkAllNotificationsRead flips every notification to read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", nil, nil, nil)
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return fmt.Errorf("notification id required")
	}
	return c.do(ctx, http.MethodDelete, "/notifications/"+notificationID, nil, nil, nil)
}

// ChatHistory returns the assistant conversation.
func (c *Client) ChatHistory(ctx context.Context) ([]ChatMessage, error) {
	var history ChatHistory
	if err := c.get(ctx, "/chat/history", nil, &history); err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// SendChatMessage posts a prompt to the assistant and returns the updated
// history as echoed by the server.
func (c *Client) SendChatMessage(ctx context.Context, content string) ([]ChatMessage, error) {
	body := map[string]string{"content": content}
	var history ChatHistory
	if err := c.do(ctx, http.MethodPost, "/chat/messages", nil, body, &history); err != nil {
		return nil, err
	}
	return history.Messages, nil
}

// UpdateFeedback rates an assistant reply; FeedbackNone clears the rating.
func (c *Client) UpdateFeedback(ctx context.Context, messageID string, feedback Feedback) error {
	if messageID == "" {
		return fmt.Errorf("message id required")
	}
	body := map[string]any{"feedback": nil}
	if feedback != FeedbackNone {
		body["feedback"] = string(feedback)
	}
	return c.do(ctx, http.MethodPut, "/chat/messages/"+messageID+"/feedback", nil, body, nil)
}

// ClearChat deletes the assistant conversation.
func (c *Client) ClearChat(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/chat/history", nil, nil, nil)
}

// Conversation returns the thread with peerID, oldest first.
func (c *Client) Conversation(ctx context.Context, peerID string) ([]DirectMessage, error) {
	if peerID == "" {
		return nil, fmt.Errorf("peer id required")
	}
	var conv Conversation
	if err := c.get(ctx, "/messages/"+peerID, nil, &conv); err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// SendMessage appends a message to the thread with peerID.
func (c *Client) SendMessage(ctx context.Context, peerID, content string) (DirectMessage, error) {
	if peerID == "" {
		return DirectMessage{}, fmt.Errorf("peer id required")
	}
	body := map[string]string{"content": content}
	var msg DirectMessage
	if err := c.do(ctx, http.MethodPost, "/messages/"+peerID, nil, body, &msg); err != nil {
		return DirectMessage{}, err
	}
	return msg, nil
}

// ConversationPartners lists every thread the current user takes part in.
func (c *Client) ConversationPartners(ctx context.Context) ([]ConversationPartner, error) {
	var list PartnerList
	if err := c.get(ctx, "/messages/partners", nil, &list); err != nil {
		return nil, err
	}
	return list.Partners, nil
}

// UnreadMessageCount returns the global message badge value.
func (c *Client) UnreadMessageCount(ctx context.Context) (int, error) {
	var payload UnreadCount
	if err := c.get(ctx, "/messages/unread-count", nil, &payload); err != nil {
		return 0, err
	}
	return max(payload.Count, 0), nil
}

// MarkConversationRead acknowledges every message received from peerID.
func (c *Client) MarkConversationRead(ctx context.Context, peerID string) error {
	if peerID == "" {
		return fmt.Errorf("peer id required")
	}
	return c.do(ctx, http.MethodPut, "/messages/"+peerID+"/read", nil, nil, nil)
}
