package web

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-guido/pkg/command"
	"github.com/teslashibe/go-guido/pkg/hub"
	"github.com/teslashibe/go-guido/pkg/transcript"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	State   any `json:"state"`
	Clients int `json:"clients"`
}

// TextRequest is the body of POST /api/classify and POST /api/utterance.
type TextRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode,omitempty"`
}

// ClassifyResponse describes a classified utterance.
type ClassifyResponse struct {
	Kind      string `json:"kind"`
	Tool      string `json:"tool,omitempty"`
	Topic     string `json:"topic,omitempty"`
	Utterance string `json:"utterance"`
	Mode      string `json:"mode"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	resp := StatusResponse{Clients: s.hub.ClientCount()}
	if s.deps.State != nil {
		resp.State = s.deps.State.Snapshot()
	}
	return c.JSON(resp)
}

func (s *Server) handleTools(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": s.deps.Classifier.Catalog().Names()})
}

func (s *Server) handleProcedures(c *fiber.Ctx) error {
	return c.JSON(s.deps.Library.All())
}

func (s *Server) handleProcedure(c *fiber.Ctx) error {
	p, ok := s.deps.Library.Get(c.Params("key"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown procedure")
	}
	return c.JSON(p)
}

func (s *Server) handleClassify(c *fiber.Ctx) error {
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	mode := command.ModeDormant
	switch strings.ToLower(req.Mode) {
	case "active":
		mode = command.ModeActive
	case "dormant":
	case "":
		if s.deps.State != nil && s.deps.State.Active() {
			mode = command.ModeActive
		}
	default:
		return fiber.NewError(fiber.StatusBadRequest, "mode must be active or dormant")
	}

	cmd := s.deps.Classifier.Classify(req.Text, mode)
	return c.JSON(ClassifyResponse{
		Kind:      cmd.Kind.String(),
		Tool:      cmd.Tool,
		Topic:     cmd.Topic,
		Utterance: cmd.Utterance,
		Mode:      mode.String(),
	})
}

// handleUtterance feeds typed text to the assistant as if it had been heard.
func (s *Server) handleUtterance(c *fiber.Ctx) error {
	if s.deps.Queue == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "typed utterances are disabled")
	}
	var req TextRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	text := transcript.Normalize(req.Text)
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text required")
	}

	if err := s.deps.Queue.Offer(text); err != nil {
		if errors.Is(err, transcript.ErrQueueFull) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}
	s.logger.Info("typed utterance queued", "text", text)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": text})
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", s.cfg.RecentLimit)
	if limit <= 0 || limit > s.cfg.RecentLimit {
		limit = s.cfg.RecentLimit
	}
	return c.JSON(s.Recent(limit))
}

func (s *Server) handleSession(c *fiber.Ctx) error {
	if s.deps.Journal == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "journal disabled")
	}
	list, err := s.deps.Journal.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "unknown session")
	}
	return c.JSON(list)
}

// handleEventsWS streams events; new clients first receive the recent buffer.
func (s *Server) handleEventsWS(conn *websocket.Conn) {
	var initial []hub.Frame
	for _, e := range s.Recent(s.cfg.RecentLimit) {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		initial = append(initial, hub.Frame{Data: data})
	}
	hub.NewClient(s.hub, conn).Run(initial...)
}
