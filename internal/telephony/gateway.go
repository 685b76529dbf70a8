// Package telephony terminates the provider's media-stream WebSocket and
// routes its events to a per-call turn controller. It has no knowledge of
// conversation semantics; that all lives in internal/turn.
package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/interrupt"
	"github.com/propertyhub/voice-agent/internal/llm"
	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/session"
	"github.com/propertyhub/voice-agent/internal/stt"
	"github.com/propertyhub/voice-agent/internal/tts"
	"github.com/propertyhub/voice-agent/internal/turn"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The telephony provider originates connections from its own
		// infrastructure, not a browser; no cross-origin concern applies.
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsEvent is the generic envelope every inbound frame is parsed into before
// dispatching on its Event field.
type wsEvent struct {
	Event       string   `json:"event"`
	Start       *wsStart `json:"start,omitempty"`
	Media       *wsMedia `json:"media,omitempty"`
	DTMF        *wsDTMF  `json:"dtmf,omitempty"`
	CustomField string   `json:"customField,omitempty"`
}

type wsStart struct {
	CallSID   string `json:"call_sid"`
	StreamSID string `json:"stream_sid"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type wsMedia struct {
	Payload string `json:"payload"`
}

type wsDTMF struct {
	Digit string `json:"digit"`
}

// leadContext is the shape expected inside the start event's CustomField
// JSON string: the campaign/lead facts the turn controller needs to build
// its system prompt and deterministic intro.
type leadContext struct {
	CampaignID   int64  `json:"campaign_id"`
	LeadID       int64  `json:"lead_id"`
	AgentName    string `json:"agent_name"`
	LeadName     string `json:"lead_name"`
	PropertyType string `json:"property_type"`
	Location     string `json:"location"`
	Budget       string `json:"budget"`
}

// outboundFrame is the egress envelope, mirroring the inbound shape per §6.
type outboundFrame struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid"`
	Media     outboundMedia `json:"media"`
}

type outboundMedia struct {
	Payload string `json:"payload"`
}

// Gateway upgrades incoming HTTP connections to WebSockets and owns the
// active call-id → connection map. Each connection gets its own turn
// controller, goroutine, and lifecycle.
type Gateway struct {
	cfg          *config.Config
	sessionStore *session.Store
	interruptMgr *interrupt.Manager
	sttClient    stt.STTClient
	llmClient    llm.Client
	ttsClient    tts.TTSClient
	finalize     turn.FinalizeFunc

	mu          sync.Mutex
	connections map[string]*connection
}

type connection struct {
	conn *websocket.Conn
	ctrl *turn.Controller
}

// NewGateway builds a Gateway. finalize is invoked once per call when it
// reaches Closed, with the final session snapshot and derived outcome — the
// caller wires this to the durable store.
func NewGateway(
	cfg *config.Config,
	sessionStore *session.Store,
	interruptMgr *interrupt.Manager,
	sttClient stt.STTClient,
	llmClient llm.Client,
	ttsClient tts.TTSClient,
	finalize turn.FinalizeFunc,
) *Gateway {
	return &Gateway{
		cfg:          cfg,
		sessionStore: sessionStore,
		interruptMgr: interruptMgr,
		sttClient:    sttClient,
		llmClient:    llmClient,
		ttsClient:    ttsClient,
		finalize:     finalize,
		connections:  make(map[string]*connection),
	}
}

// HandleWS is the http.HandlerFunc the API layer mounts the media-stream
// WebSocket endpoint to.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.GetLogger().Error().Err(err).Msg("gateway: websocket upgrade failed")
		http.Error(w, "failed to upgrade to websocket", http.StatusBadRequest)
		return
	}
	defer conn.Close()

	observability.IncWebSocketConnections()
	defer observability.DecWebSocketConnections()

	g.readLoop(conn)
}

func (g *Gateway) readLoop(conn *websocket.Conn) {
	logger := observability.GetLogger()
	var callID string

	defer func() {
		if callID != "" {
			g.removeConnection(callID)
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Str("call_id", callID).Msg("gateway: websocket read error")
			}
			if c := g.lookupByID(callID); c != nil {
				_ = c.ctrl.Finalize(context.Background())
			}
			return
		}

		var evt wsEvent
		if err := json.Unmarshal(message, &evt); err != nil {
			logger.Warn().Err(err).Msg("gateway: ignoring unparseable frame")
			continue
		}

		switch evt.Event {
		case "connected":
			// Nothing to do until `start` provides call/stream identity.

		case "start":
			if evt.Start == nil {
				logger.Warn().Msg("gateway: start event missing start payload")
				continue
			}
			callID = evt.Start.CallSID
			c, err := g.startConnection(conn, evt)
			if err != nil {
				logger.Error().Err(err).Str("call_id", callID).Msg("gateway: failed to start call")
				continue
			}
			g.addConnection(callID, c)

		case "media":
			if evt.Media == nil {
				continue
			}
			if c := g.lookupByID(callID); c != nil {
				if err := c.ctrl.HandleMedia(context.Background(), evt.Media.Payload); err != nil {
					logger.Warn().Err(err).Str("call_id", callID).Msg("gateway: media handling failed")
				}
			}

		case "clear":
			if c := g.lookupByID(callID); c != nil {
				c.ctrl.HandleClear()
			}

		case "dtmf":
			if evt.DTMF == nil {
				continue
			}
			if c := g.lookupByID(callID); c != nil {
				if err := c.ctrl.HandleDTMF(context.Background(), evt.DTMF.Digit); err != nil {
					logger.Warn().Err(err).Str("call_id", callID).Msg("gateway: dtmf handling failed")
				}
			}

		case "stop":
			if c := g.lookupByID(callID); c != nil {
				if err := c.ctrl.HandleStop(context.Background()); err != nil {
					logger.Warn().Err(err).Str("call_id", callID).Msg("gateway: stop handling failed")
				}
			}
			return

		default:
			logger.Debug().Str("event", evt.Event).Msg("gateway: ignoring unknown event")
		}
	}
}

func (g *Gateway) startConnection(conn *websocket.Conn, evt wsEvent) (*connection, error) {
	var lead leadContext
	if evt.CustomField != "" {
		if err := json.Unmarshal([]byte(evt.CustomField), &lead); err != nil {
			return nil, fmt.Errorf("gateway: parse customField: %w", err)
		}
	}
	if lead.AgentName == "" {
		lead.AgentName = "Alex"
	}

	info := turn.StartInfo{
		CallID:       evt.Start.CallSID,
		StreamSID:    evt.Start.StreamSID,
		CampaignID:   lead.CampaignID,
		LeadID:       lead.LeadID,
		AgentName:    lead.AgentName,
		LeadName:     lead.LeadName,
		PropertyType: lead.PropertyType,
		Location:     lead.Location,
		Budget:       lead.Budget,
	}

	send := func(streamSID, payload string) error {
		frame := outboundFrame{Event: "media", StreamSID: streamSID, Media: outboundMedia{Payload: payload}}
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	ctrl := turn.NewController(info, g.sessionStore, g.interruptMgr, g.sttClient, g.llmClient, g.ttsClient, g.cfg, send, g.finalize)
	if err := ctrl.HandleStart(context.Background()); err != nil {
		return nil, err
	}

	return &connection{conn: conn, ctrl: ctrl}, nil
}

func (g *Gateway) addConnection(callID string, c *connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connections[callID] = c
}

func (g *Gateway) removeConnection(callID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, callID)
}

func (g *Gateway) lookupByID(callID string) *connection {
	if callID == "" {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connections[callID]
}

// ActiveCallCount reports the number of calls currently connected to this
// gateway.
func (g *Gateway) ActiveCallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.connections)
}
