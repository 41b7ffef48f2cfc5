// Package server exposes the scope of work flow over a websocket. Each
// connection is one session.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/sowgen/internal/models"
	"github.com/xhad/sowgen/pkg/prompt"
	"github.com/xhad/sowgen/pkg/session"
	"github.com/xhad/sowgen/pkg/sow"
)

// Message types sent by the client.
const (
	TypeGenerate = "generate"
	TypeGather   = "gather"
	TypeRefine   = "refine"
	TypeCurrent  = "current"
	TypeReset    = "reset"
)

// Message types sent by the server.
const (
	TypeStatus   = "status"
	TypeExamples = "examples"
	TypeDocument = "document"
	TypeWarning  = "warning"
	TypeError    = "error"
)

const maxMessageSize = 32 << 20

type Message struct {
	Type    string          `json:"type"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// GenerateData is the payload of gather and generate messages. File is
// base64 in JSON. A generate message without a file composes the examples
// of the last gather, minus the Exclude indices.
type GenerateData struct {
	FileName     string `json:"file_name"`
	File         []byte `json:"file"`
	Description  string `json:"description"`
	Role         string `json:"role"`
	Keyword      string `json:"keyword"`
	URL          string `json:"url"`
	CustomClause string `json:"custom_clause"`
	Exclude      []int  `json:"exclude"`
}

func (d GenerateData) hasUpload() bool {
	return d.FileName != "" || len(d.File) > 0
}

func (d GenerateData) request() (sow.Request, error) {
	role, err := prompt.ParseRole(d.Role)
	if err != nil {
		return sow.Request{}, err
	}

	req := sow.Request{
		Description:  d.Description,
		Role:         role,
		Keyword:      d.Keyword,
		URL:          d.URL,
		CustomClause: d.CustomClause,
	}
	if d.hasUpload() {
		req.Upload = &models.Upload{Name: d.FileName, Data: d.File}
	}
	return req, nil
}

// ExampleView is how a gathered example is presented to the client.
type ExampleView struct {
	Index  int    `json:"index"`
	Origin string `json:"origin"`
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

type Config struct {
	Addr   string
	Logger *zap.Logger
}

type WSServer struct {
	config    Config
	generator *sow.Generator
	sessions  *session.Manager
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

func NewWSServer(config Config, generator *sow.Generator) *WSServer {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &WSServer{
		config:    config,
		generator: generator,
		sessions:  session.NewManager(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Be careful with this in production
			},
		},
		log: config.Logger,
	}
}

// Sessions returns the live session registry.
func (s *WSServer) Sessions() *session.Manager {
	return s.sessions
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *WSServer) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting websocket server", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// connection is the per-socket state. Messages are handled one at a time
// in the read loop, so the fields need no locking.
type connection struct {
	conn  *websocket.Conn
	sess  *session.Session
	draft *sow.Draft
	log   *zap.Logger
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	sess := s.sessions.Create()
	defer s.sessions.End(sess.ID)

	c := &connection{
		conn: conn,
		sess: sess,
		log:  s.log.With(zap.String("session", sess.ID)),
	}
	c.log.Info("session started")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.send(TypeError, "invalid message", nil)
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("error reading message", zap.Error(err))
			}
			break
		}

		s.handleMessage(ctx, c, msg)
	}

	c.log.Info("session ended")
}

func (s *WSServer) handleMessage(ctx context.Context, c *connection, msg Message) {
	c.log.Debug("message received", zap.String("type", msg.Type))

	switch msg.Type {
	case TypeGather:
		s.handleGather(ctx, c, msg)
	case TypeGenerate:
		s.handleGenerate(ctx, c, msg)
	case TypeRefine:
		s.handleRefine(ctx, c, msg)
	case TypeCurrent:
		if !c.sess.HasDocument() {
			c.fail(sow.ErrNoDocument)
			return
		}
		c.send(TypeDocument, c.sess.Document(), nil)
	case TypeReset:
		c.sess.Clear()
		c.draft = nil
		c.send(TypeStatus, "session reset", nil)
	default:
		c.send(TypeError, fmt.Sprintf("unknown message type %q", msg.Type), nil)
	}
}

func (s *WSServer) handleGather(ctx context.Context, c *connection, msg Message) {
	data, ok := c.decode(msg)
	if !ok {
		return
	}
	req, err := data.request()
	if err != nil {
		c.fail(err)
		return
	}

	c.send(TypeStatus, "extracting document and gathering examples", nil)
	draft, err := s.generator.Gather(ctx, req)
	if err != nil {
		c.fail(err)
		return
	}
	c.draft = draft

	for _, w := range draft.Warnings() {
		c.send(TypeWarning, w, nil)
	}

	views := make([]ExampleView, 0, len(draft.Examples))
	for i, ex := range draft.Examples {
		views = append(views, ExampleView{
			Index:  i,
			Origin: string(ex.Origin),
			Source: ex.Source,
			Text:   ex.Text,
		})
	}
	c.send(TypeExamples, fmt.Sprintf("%d examples gathered", len(views)), views)
}

func (s *WSServer) handleGenerate(ctx context.Context, c *connection, msg Message) {
	data, ok := c.decode(msg)
	if !ok {
		return
	}

	draft := c.draft
	if data.hasUpload() || draft == nil {
		req, err := data.request()
		if err != nil {
			c.fail(err)
			return
		}
		c.send(TypeStatus, "extracting document and gathering examples", nil)
		draft, err = s.generator.Gather(ctx, req)
		if err != nil {
			c.fail(err)
			return
		}
	} else if data.Role != "" {
		role, err := prompt.ParseRole(data.Role)
		if err != nil {
			c.fail(err)
			return
		}
		draft.Request.Role = role
	}
	for _, i := range data.Exclude {
		draft.SetIncluded(i, false)
	}

	c.send(TypeStatus, "generating scope of work", nil)
	result, err := s.generator.Compose(ctx, c.sess, draft)
	if err != nil {
		c.fail(err)
		return
	}
	c.draft = nil

	for _, w := range result.Warnings {
		c.send(TypeWarning, w, nil)
	}
	c.send(TypeDocument, result.Document, nil)
}

func (s *WSServer) handleRefine(ctx context.Context, c *connection, msg Message) {
	c.send(TypeStatus, "refining scope of work", nil)
	refined, err := s.generator.Refine(ctx, c.sess, msg.Content)
	if err != nil {
		c.fail(err)
		return
	}
	c.send(TypeDocument, refined, nil)
}

func (c *connection) decode(msg Message) (GenerateData, bool) {
	var data GenerateData
	if len(msg.Data) == 0 {
		return data, true
	}
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		c.send(TypeError, fmt.Sprintf("invalid %s payload: %v", msg.Type, err), nil)
		return data, false
	}
	return data, true
}

func (c *connection) fail(err error) {
	c.log.Warn("request failed", zap.Error(err))
	c.send(TypeError, err.Error(), nil)
}

func (c *connection) send(msgType, content string, data interface{}) {
	msg := Message{
		Type:    msgType,
		Content: content,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			c.log.Error("failed to encode message data", zap.Error(err))
			return
		}
		msg.Data = raw
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.log.Warn("error sending message", zap.Error(err))
	}
}
