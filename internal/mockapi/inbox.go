package mockapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/five82/momento/internal/momento"
)

func (s *Server) notifyLocked(recipient string, kind momento.NotificationType, actorID, postID, targetID string) {
	n := &notification{
		id:        newID(),
		recipient: recipient,
		kind:      kind,
		actorID:   actorID,
		postID:    postID,
		targetID:  targetID,
		createdAt: s.tickLocked(),
	}
	s.notifications[n.id] = n
}

func (s *Server) renderNotificationLocked(n *notification) momento.Notification {
	out := momento.Notification{ID: n.id, Type: n.kind, Read: n.read, CreatedAt: n.createdAt}
	if acct := s.accounts[n.actorID]; acct != nil {
		actor := acct.user
		out.Actor = &actor
	}
	if post, ok := s.posts[n.postID]; ok {
		p := clonePost(post)
		out.Post = &p
	}
	if acct := s.accounts[n.targetID]; acct != nil {
		target := acct.user
		out.Target = &target
	}
	return out
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	list := make([]momento.Notification, 0)
	for _, n := range s.notifications {
		if n.recipient == me {
			list = append(list, s.renderNotificationLocked(n))
		}
	}
	s.mu.Unlock()
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	writeJSON(w, http.StatusOK, momento.NotificationList{Documents: list})
}

func (s *Server) handleUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	count := 0
	for _, n := range s.notifications {
		if n.recipient == me && !n.read {
			count++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.UnreadCount{Count: count})
}

func (s *Server) handleReadNotification(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[mux.Vars(r)["id"]]
	if !ok || n.recipient != currentUser(r) {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	n.read = true
	writeJSON(w, http.StatusOK, s.renderNotificationLocked(n))
}

func (s *Server) handleReadAllNotifications(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	for _, n := range s.notifications {
		if n.recipient == me {
			n.read = true
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked as read"})
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[mux.Vars(r)["id"]]
	if !ok || n.recipient != currentUser(r) {
		writeError(w, http.StatusNotFound, "Notification not found")
		return
	}
	delete(s.notifications, n.id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	history := append([]momento.ChatMessage{}, s.chats[currentUser(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.ChatHistory{Messages: history})
}

func (s *Server) handleClearChat(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.chats, currentUser(r))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Chat cleared"})
}

func (s *Server) handleSendChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prompt := strings.TrimSpace(req.Content)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "Message content required")
		return
	}
	answer := s.reply(prompt)

	me := currentUser(r)
	s.mu.Lock()
	s.chats[me] = append(s.chats[me],
		momento.ChatMessage{ID: newID(), UserID: me, Role: momento.ChatRoleUser, Content: prompt, CreatedAt: s.tickLocked()},
		momento.ChatMessage{ID: newID(), UserID: me, Role: momento.ChatRoleAssistant, Content: answer, CreatedAt: s.tickLocked()},
	)
	history := append([]momento.ChatMessage{}, s.chats[me]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.ChatHistory{Messages: history})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Feedback *string `json:"feedback"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	feedback := momento.FeedbackNone
	if req.Feedback != nil {
		feedback = momento.Feedback(*req.Feedback)
	}
	if feedback != momento.FeedbackNone && feedback != momento.FeedbackUp && feedback != momento.FeedbackDown {
		writeError(w, http.StatusBadRequest, "Feedback must be up, down or null")
		return
	}

	me, id := currentUser(r), mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.chats[me]
	for i := range history {
		if history[i].ID == id && history[i].Role == momento.ChatRoleAssistant {
			history[i].Feedback = feedback
			writeJSON(w, http.StatusOK, history[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Message not found")
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	me, peer := currentUser(r), mux.Vars(r)["id"]
	s.mu.Lock()
	thread := make([]momento.DirectMessage, 0)
	for _, msg := range s.messages {
		if (msg.SenderID == me && msg.ReceiverID == peer) || (msg.SenderID == peer && msg.ReceiverID == me) {
			thread = append(thread, *msg)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.Conversation{Messages: thread})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"imageUrl"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "Message content required")
		return
	}
	me, peer := currentUser(r), mux.Vars(r)["id"]
	if me == peer {
		writeError(w, http.StatusBadRequest, "Cannot message yourself")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[peer] == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	msg := s.appendMessageLocked(me, peer, content, req.ImageURL)
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleReadConversation(w http.ResponseWriter, r *http.Request) {
	me, peer := currentUser(r), mux.Vars(r)["id"]
	s.mu.Lock()
	marked := 0
	for _, msg := range s.messages {
		if msg.SenderID == peer && msg.ReceiverID == me && !msg.Read {
			msg.Read = true
			marked++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"marked": marked})
}

// handlePartners summarises every thread the caller takes part in, most
// recently active first.
func (s *Server) handlePartners(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	byPeer := make(map[string]*momento.ConversationPartner)
	for _, msg := range s.messages {
		var peer string
		switch me {
		case msg.SenderID:
			peer = msg.ReceiverID
		case msg.ReceiverID:
			peer = msg.SenderID
		default:
			continue
		}
		acct := s.accounts[peer]
		if acct == nil {
			continue
		}
		p, ok := byPeer[peer]
		if !ok {
			p = &momento.ConversationPartner{User: acct.user}
			byPeer[peer] = p
		}
		if !msg.CreatedAt.Before(p.LastMessageAt) {
			p.LastMessage = msg.Content
			p.LastSenderID = msg.SenderID
			p.LastMessageAt = msg.CreatedAt
		}
		if msg.ReceiverID == me && !msg.Read {
			p.UnreadCount++
		}
	}
	s.mu.Unlock()

	partners := make([]momento.ConversationPartner, 0, len(byPeer))
	for _, p := range byPeer {
		partners = append(partners, *p)
	}
	sort.SliceStable(partners, func(i, j int) bool {
		return partners[i].LastMessageAt.After(partners[j].LastMessageAt)
	})
	writeJSON(w, http.StatusOK, momento.PartnerList{Partners: partners})
}

func (s *Server) handleUnreadMessages(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	s.mu.Lock()
	count := 0
	for _, msg := range s.messages {
		if msg.ReceiverID == me && !msg.Read {
			count++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.UnreadCount{Count: count})
}

func (s *Server) appendMessageLocked(from, to, content, imageURL string) momento.DirectMessage {
	msg := &momento.DirectMessage{
		ID:         newID(),
		SenderID:   from,
		ReceiverID: to,
		Content:    content,
		ImageURL:   imageURL,
		CreatedAt:  s.tickLocked(),
	}
	s.messages = append(s.messages, msg)
	return *msg
}

func sortReviewsNewest(reviews []momento.Review) {
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
}
