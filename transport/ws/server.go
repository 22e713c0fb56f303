package ws

import (
	"chat-presence/auth"
	"chat-presence/domain"
	"chat-presence/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Config struct {
	WriteTimeout   time.Duration
	ReadLimit      int64
	HistoryLimit   int
	ReadBufferSize int
}

// Server is the WebSocket gateway. It owns no chat state: every frame is turned
// into a ChatService call and answered on the connection that sent it.
type Server struct {
	log      *slog.Logger
	chat     services.IChatService
	config   Config
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

func NewServer(log *slog.Logger, chat services.IChatService, config Config) *Server {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = 4096
	}
	return &Server{
		log:    log,
		chat:   chat,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.ReadBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*Conn]struct{}),
	}
}

// Handler mounts the gateway on /ws behind token authentication.
func (s *Server) Handler(tokens auth.TokenManager) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", tokens.Middleware(s))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	socket, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("Websocket upgrade failed", "user", userID, "error", err)
		return
	}
	if s.config.ReadLimit > 0 {
		socket.SetReadLimit(s.config.ReadLimit)
	}
	conn := NewConn(socket, s.config.WriteTimeout)

	connectionID, err := s.chat.Login(userID, conn)
	if err != nil {
		s.log.Error("Login failed", "user", userID, "error", err)
		_ = conn.Close()
		return
	}
	s.track(conn)

	sess := &session{server: s, userID: userID, connectionID: connectionID, conn: conn}
	defer sess.logout()
	sess.readLoop(r.Context())
}

// Close closes every live connection. Their read loops end and log them out.
func (s *Server) Close() {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) track(c *Conn) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

type session struct {
	server       *Server
	userID       domain.UserID
	connectionID domain.ConnectionID
	conn         *Conn
	logoutOnce   sync.Once
}

func (s *session) logout() {
	s.logoutOnce.Do(func() {
		s.server.untrack(s.conn)
		s.server.chat.Logout(s.userID, s.connectionID)
		_ = s.conn.Close()
	})
}

func (s *session) readLoop(ctx context.Context) {
	log := s.server.log.With("user", s.userID, "connection", s.connectionID)
	for {
		mt, data, err := s.conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Debug("Peer closed connection")
			} else {
				log.Debug("Read failed", "error", err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Warn("Malformed frame", "error", err, "len", len(data))
			s.send(ctx, errorReply("", fmt.Errorf("malformed frame: %w", err)))
			continue
		}
		s.send(ctx, s.handle(frame))
	}
}

func (s *session) send(ctx context.Context, reply Reply) {
	if err := s.conn.reply(ctx, reply); err != nil {
		s.server.log.Debug("Reply not delivered", "user", s.userID, "error", err)
	}
}

func (s *session) handle(frame InboundFrame) Reply {
	chat := s.server.chat
	reply := okReply(frame.RequestID)
	var err error

	switch frame.Type {
	case FrameSend:
		var msg domain.Message
		msg, err = chat.SendMessage(domain.SendMessageCommand{
			TopicID:  frame.TopicID,
			SenderID: s.userID,
			Content:  frame.Content,
			Origin:   s.connectionID,
		})
		reply.Message = &msg
	case FrameTyping:
		err = chat.SetTyping(s.userID, frame.TopicID, frame.Typing)
	case FrameRead:
		var update services.CursorUpdate
		update, err = chat.MarkRead(domain.MarkReadCommand{
			TopicID: frame.TopicID,
			UserID:  s.userID,
			SeqID:   frame.SeqID,
			Origin:  s.connectionID,
		})
		reply.Cursor = &update
	case FrameHistory:
		limit := frame.Limit
		if limit == 0 {
			limit = s.server.config.HistoryLimit
		}
		reply.Messages, err = chat.History(domain.HistoryQuery{
			RequesterID: s.userID,
			TopicID:     frame.TopicID,
			FromSeq:     frame.FromSeq,
			ToSeq:       frame.ToSeq,
			Limit:       limit,
		})
	case FrameDelete:
		err = chat.DeleteForSelf(s.userID, frame.TopicID, frame.SeqID)
	case FrameSubscribe:
		err = chat.SubscribeGroupStatus(s.userID, frame.TopicID)
	case FrameUnsubscribe:
		chat.UnsubscribeGroupStatus(s.userID, frame.TopicID)
	case FramePeerPresence:
		status := chat.PeerPresence(s.userID, frame.UserID)
		reply.Online, reply.Typing = &status.Online, &status.TypingAtViewer
	case FrameCreateGroup:
		var topic domain.Topic
		topic, err = chat.CreateGroup(domain.CreateGroupCommand{CreatorID: s.userID, Name: frame.Name})
		reply.Topic = &topic
	case FrameAddMember:
		reply.Message, err = messageOf(chat.AddMember(s.userID, frame.TopicID, frame.UserID, frame.Permissions))
	case FrameRemoveMember:
		reply.Message, err = messageOf(chat.RemoveMember(s.userID, frame.TopicID, frame.UserID))
	case FrameLeaveGroup:
		reply.Message, err = messageOf(chat.LeaveGroup(s.userID, frame.TopicID))
	case FrameJoinGroup:
		reply.Message, err = messageOf(chat.JoinGroup(s.userID, frame.TopicID, frame.ViaLink))
	case FramePermissions:
		reply.Message, err = messageOf(chat.ChangePermissions(s.userID, frame.TopicID, frame.UserID, frame.Permissions))
	default:
		err = fmt.Errorf("unknown frame type %q", frame.Type)
	}

	if err != nil {
		return errorReply(frame.RequestID, err)
	}
	return reply
}

func messageOf(msg domain.Message, err error) (*domain.Message, error) {
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
