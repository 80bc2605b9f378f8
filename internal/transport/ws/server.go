package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gridbot.ai/internal/grid"
	"gridbot.ai/internal/protocol"
	"gridbot.ai/internal/sim/world"
)

// Path is where Server.Handler is mounted by the CLI.
const Path = "/v1/ws"

// Server exposes a sim world over websocket. Each connection spawns one body
// and is served strictly request/response, one REQ at a time.
type Server struct {
	world *world.World
	log   *zap.Logger

	// Strict validates every inbound message against its schema.
	Strict bool
	// OnRequest, when set, is called after every served request.
	OnRequest func(op string, ok bool)

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		body := s.handshake(conn)
		if body == nil {
			return
		}
		defer s.world.Remove(body.ID())
		log := s.log.With(zap.String("agent_id", body.ID()), zap.String("agent", body.Name()))
		log.Info("agent joined")

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				log.Info("agent left", zap.Error(err))
				return
			}
			res := s.serve(body, msg)
			if s.OnRequest != nil {
				s.OnRequest(res.op, res.msg.OK)
			}
			if !res.msg.OK {
				log.Debug("request rejected", zap.Uint64("id", res.msg.ID), zap.String("op", res.op), zap.String("code", res.msg.Code), zap.String("msg", res.msg.Message))
			}
			if err := writeJSON(conn, res.msg); err != nil {
				log.Warn("write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) handshake(conn *websocket.Conn) *world.Body {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil
	}
	if s.Strict {
		if err := protocol.Validate(msg); err != nil {
			closeWith(conn, "invalid HELLO")
			return nil
		}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil
	}
	if hello.AgentName == "" {
		hello.AgentName = "agent"
	}

	body := s.world.Spawn(hello.AgentName, nil)
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		AgentID:         body.ID(),
		Rows:            s.world.Rows(),
		Cols:            s.world.Cols(),
		Self:            selfState(body),
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.world.Remove(body.ID())
		return nil
	}
	return body
}

type served struct {
	op  string
	msg protocol.ResMsg
}

type eventBuffer []grid.Event

func (b *eventBuffer) RecordEvent(e grid.Event) { *b = append(*b, e) }

func (s *Server) serve(body *world.Body, msg []byte) served {
	res := protocol.ResMsg{Type: protocol.TypeRes, ProtocolVersion: protocol.Version}

	var req protocol.ReqMsg
	if err := json.Unmarshal(msg, &req); err != nil || req.Type != protocol.TypeReq {
		return s.reject(body, "", res, protocol.ErrProtoBadRequest, "expected REQ")
	}
	res.ID = req.ID
	if req.ProtocolVersion != protocol.Version {
		return s.reject(body, req.Op, res, protocol.ErrProtoVersion, "bad protocol_version")
	}
	if s.Strict {
		if err := protocol.Validate(msg); err != nil {
			return s.reject(body, req.Op, res, protocol.ErrProtoBadRequest, err.Error())
		}
	}

	events := eventBuffer{}
	body.SetSink(&events)
	defer body.SetSink(nil)

	var err error
	switch req.Op {
	case protocol.OpSense:
		var v grid.View
		v, err = body.Sense()
		res.View = protocol.NewViewObs(v)
	case protocol.OpSenseDir:
		var v grid.View
		v, err = body.SenseDirection(req.Dir, req.Distance)
		res.View = protocol.NewViewObs(v)
	case protocol.OpMove:
		err = body.Move(req.Dir)
	case protocol.OpDestroy:
		err = body.Destroy(req.Dir)
	case protocol.OpDeposit:
		content, perr := grid.ParseContent(req.Content)
		if perr != nil {
			return s.reject(body, req.Op, res, protocol.ErrBadRequest, perr.Error())
		}
		err = body.Deposit(req.Dir, content, req.Amount)
	case protocol.OpTeleport:
		if req.Target == nil {
			return s.reject(body, req.Op, res, protocol.ErrBadRequest, "missing target")
		}
		err = body.Teleport(*req.Target)
	case protocol.OpState:
	default:
		return s.reject(body, req.Op, res, protocol.ErrBadRequest, "unknown op "+req.Op)
	}

	res.OK = err == nil
	if err != nil {
		var ae *world.ActionError
		if errors.As(err, &ae) {
			res.Code, res.Message = ae.Code, ae.Msg
		} else {
			res.Code, res.Message = protocol.ErrInternal, err.Error()
		}
	}
	res.Self = selfState(body)
	res.Events = events
	return served{op: req.Op, msg: res}
}

func (s *Server) reject(body *world.Body, op string, res protocol.ResMsg, code, msg string) served {
	res.OK = false
	res.Code = code
	res.Message = msg
	res.Self = selfState(body)
	res.Events = []grid.Event{}
	return served{op: op, msg: res}
}

func selfState(b *world.Body) protocol.SelfState {
	return protocol.SelfState{
		Pos:     b.Position(),
		Carried: map[string]int{grid.Garbage.String(): b.Carried(grid.Garbage)},
		Energy:  b.Energy(),
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
