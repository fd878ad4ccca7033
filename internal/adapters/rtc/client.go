// Package rtc is the reference transport: JSON signalling over a
// gorilla websocket plus a pion peer connection for the media plane.
package rtc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/parley-rtc/parley/internal/core"
	"github.com/parley-rtc/parley/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

const (
	writeDeadline        = 5 * time.Second
	welcomeDeadline      = 10 * time.Second
	maxReconnectAttempts = 3
	reconnectBackoff     = 2 * time.Second
)

// Dialer establishes websocket transports. The zero value is ready to use.
type Dialer struct {
	// WebRTC overrides the peer connection configuration when set.
	WebRTC *webrtc.Configuration
}

type trackMeta struct {
	info   domain.TrackInfo
	width  uint32
	height uint32
}

// Client is one live connection to a room.
type Client struct {
	wsURL string
	token string

	events chan core.Event
	send   chan []byte
	done   chan struct{}

	pc     *peerConn
	pcCtx  context.Context
	pcStop context.CancelFunc

	sid      domain.ParticipantSID
	identity string
	name     string

	mu        sync.RWMutex
	conn      *websocket.Conn
	closed    bool
	trackMeta map[string]trackMeta
	micSender *webrtc.RTPSender
	camSender *webrtc.RTPSender
}

// Dial connects the signalling websocket, completes the join handshake
// and starts the media plane. The returned transport is already
// Connected; the roster from the welcome arrives as join events.
func (d *Dialer) Dial(ctx context.Context, url, token string) (core.Transport, error) {
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("signalling dial: %w", err)
	}

	c := &Client{
		wsURL:     url,
		token:     token,
		events:    make(chan core.Event, 256),
		send:      make(chan []byte, 32),
		done:      make(chan struct{}),
		conn:      ws,
		trackMeta: make(map[string]trackMeta),
	}

	welcome, err := c.join(ws)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	c.sid = domain.ParticipantSID(welcome.SID)
	c.identity = welcome.Identity
	c.name = welcome.Name

	cfg := defaultWebRTCConfig()
	if d.WebRTC != nil {
		cfg = *d.WebRTC
	}
	pc, err := newPeerConn(cfg, c.sid)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	c.pc = pc
	c.pcCtx, c.pcStop = context.WithCancel(context.Background())

	pc.OnICECandidate(func(ci webrtc.ICECandidateInit) {
		raw, err := json.Marshal(ci)
		if err != nil {
			return
		}
		c.sendEnvelope(envelope{Type: "candidate", Candidate: raw})
	})
	pc.OnTrack(c.onTrack)
	if err := pc.Start(c.pcCtx); err != nil {
		pc.Close()
		_ = ws.Close()
		return nil, err
	}

	offer, err := pc.CreateOffer()
	if err != nil {
		pc.Close()
		_ = ws.Close()
		return nil, err
	}
	c.sendEnvelope(envelope{Type: "offer", SDP: offer.SDP})

	go c.writePump()
	go c.readLoop()

	c.emit(core.ConnectedEvent{})
	for _, p := range welcome.Participants {
		c.emit(core.ParticipantJoinedEvent{Participant: domain.Participant{
			SID:      domain.ParticipantSID(p.SID),
			Identity: p.Identity,
			Name:     p.Name,
			IsMuted:  p.Muted,
		}})
	}
	log.Info().Str("module", "rtc").Str("sid", string(c.sid)).Msg("transport dialled")
	return c, nil
}

// join sends the join envelope and waits for the welcome.
func (c *Client) join(ws *websocket.Conn) (*envelope, error) {
	join, err := json.Marshal(envelope{Type: "join", Token: c.token})
	if err != nil {
		return nil, err
	}
	if err := ws.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return nil, err
	}
	if err := ws.WriteMessage(websocket.TextMessage, join); err != nil {
		return nil, fmt.Errorf("join write: %w", err)
	}

	if err := ws.SetReadDeadline(time.Now().Add(welcomeDeadline)); err != nil {
		return nil, err
	}
	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("welcome read: %w", err)
	}
	_ = ws.SetReadDeadline(time.Time{})

	var welcome envelope
	if err := json.Unmarshal(data, &welcome); err != nil {
		return nil, fmt.Errorf("welcome decode: %w", err)
	}
	if welcome.Type != "welcome" {
		return nil, fmt.Errorf("expected welcome, got %q", welcome.Type)
	}
	return &welcome, nil
}

func (c *Client) Events() <-chan core.Event { return c.events }

func (c *Client) LocalSID() domain.ParticipantSID { return c.sid }
func (c *Client) LocalIdentity() string           { return c.identity }
func (c *Client) LocalName() string               { return c.name }

func (c *Client) SendText(ctx context.Context, topic, text string) (core.SentMessage, error) {
	msg := core.SentMessage{
		ID:          uuid.NewString(),
		TimestampMS: time.Now().UnixMilli(),
	}
	err := c.trySendEnvelope(envelope{
		Type:        "chat",
		ID:          msg.ID,
		Topic:       topic,
		Text:        text,
		TimestampMS: msg.TimestampMS,
	})
	if err != nil {
		return core.SentMessage{}, err
	}
	return msg, nil
}

func (c *Client) SendData(ctx context.Context, topic string, payload []byte) error {
	return c.trySendEnvelope(envelope{
		Type:    "data",
		Topic:   topic,
		Payload: base64.StdEncoding.EncodeToString(payload),
	})
}

func (c *Client) SetAttribute(ctx context.Context, key, value string) error {
	return c.trySendEnvelope(envelope{Type: "attribute", Key: key, Value: value})
}

func (c *Client) PublishMicrophone(ctx context.Context) error {
	c.mu.Lock()
	if c.micSender != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "mic-"+string(c.sid),
	)
	if err != nil {
		return err
	}
	sender, err := c.pc.AddLocalTrack(track)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.micSender = sender
	c.mu.Unlock()

	if err := c.renegotiate(); err != nil {
		return err
	}
	return c.trySendEnvelope(envelope{Type: "publish", Source: "microphone"})
}

func (c *Client) PublishCamera(ctx context.Context) error {
	c.mu.Lock()
	if c.camSender != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8, ClockRate: 90000},
		"video", "cam-"+string(c.sid),
	)
	if err != nil {
		return err
	}
	sender, err := c.pc.AddLocalTrack(track)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.camSender = sender
	c.mu.Unlock()

	if err := c.renegotiate(); err != nil {
		return err
	}
	return c.trySendEnvelope(envelope{Type: "publish", Source: "camera"})
}

func (c *Client) SetMicrophoneMuted(ctx context.Context, muted bool) error {
	return c.trySendEnvelope(envelope{Type: "mute", Source: "microphone", Muted: muted})
}

func (c *Client) SetCameraMuted(ctx context.Context, muted bool) error {
	return c.trySendEnvelope(envelope{Type: "mute", Source: "camera", Muted: muted})
}

// Close tears the connection down. The final DisconnectedEvent comes
// through the event stream once the read loop observes the closure.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.sendEnvelope(envelope{Type: "leave"})
	c.pcStop()
	c.pc.Close()
	if conn != nil {
		_ = conn.Close()
	}
	return nil
}

func (c *Client) renegotiate() error {
	offer, err := c.pc.CreateOffer()
	if err != nil {
		return err
	}
	return c.trySendEnvelope(envelope{Type: "offer", SDP: offer.SDP})
}

func (c *Client) emit(e core.Event) { c.events <- e }

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

func (c *Client) trySendEnvelope(env envelope) error {
	if c.isClosed() {
		return errors.New("connection closed")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// sendEnvelope is trySendEnvelope for fire-and-forget signalling where
// backpressure only rates a log line.
func (c *Client) sendEnvelope(env envelope) {
	if err := c.trySendEnvelope(env); err != nil {
		log.Warn().Err(err).Str("module", "rtc").Str("type", env.Type).Msg("signal send dropped")
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			log.Info().Str("module", "rtc").Msg("writePump done")
			return
		case data := <-c.send:
			conn := c.currentConn()
			if conn == nil {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Err(err).Str("module", "rtc").Msg("writePump set deadline")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "rtc").Msg("writePump write error")
			}
		}
	}
}

// readLoop owns the event channel: it is the only writer of terminal
// events and closes the channel on exit.
func (c *Client) readLoop() {
	defer close(c.events)
	defer close(c.done)

	for {
		conn := c.currentConn()
		if conn == nil {
			c.emit(core.DisconnectedEvent{Reason: "connection lost"})
			return
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				c.emit(core.DisconnectedEvent{Reason: "closed by client"})
				return
			}
			log.Warn().Err(err).Str("module", "rtc").Msg("signalling read error")
			if !c.reconnect() {
				c.emit(core.DisconnectedEvent{Reason: "reconnect attempts exhausted"})
				return
			}
			continue
		}
		if terminal, reason := c.handleSignal(data); terminal {
			c.emit(core.DisconnectedEvent{Reason: reason})
			return
		}
	}
}

// reconnect redials the signalling websocket with backoff. Media plane
// state survives; the server resumes the existing peer connection.
func (c *Client) reconnect() bool {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		if c.isClosed() {
			return false
		}
		c.emit(core.ReconnectingEvent{})
		log.Info().Str("module", "rtc").Int("attempt", attempt).Msg("reconnecting signalling")
		time.Sleep(reconnectBackoff * time.Duration(attempt))

		header := http.Header{"Authorization": []string{"Bearer " + c.token}}
		ws, _, err := websocket.DefaultDialer.Dial(c.wsURL, header)
		if err != nil {
			log.Warn().Err(err).Str("module", "rtc").Int("attempt", attempt).Msg("reconnect dial failed")
			continue
		}
		if _, err := c.join(ws); err != nil {
			log.Warn().Err(err).Str("module", "rtc").Int("attempt", attempt).Msg("rejoin failed")
			_ = ws.Close()
			continue
		}
		c.mu.Lock()
		old := c.conn
		c.conn = ws
		c.mu.Unlock()
		if old != nil {
			_ = old.Close()
		}
		c.emit(core.ReconnectedEvent{})
		return true
	}
	return false
}

// handleSignal maps one signalling frame onto the event stream. Returns
// terminal=true for the server's goodbye.
func (c *Client) handleSignal(data []byte) (terminal bool, reason string) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "rtc").Msg("bad json")
		return false, ""
	}

	switch env.Type {
	case "answer":
		if err := c.pc.ApplyAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: env.SDP}); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("apply answer")
		}

	case "offer":
		answer, err := c.pc.ApplyOfferAndCreateAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: env.SDP})
		if err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("renegotiation offer")
			return false, ""
		}
		c.sendEnvelope(envelope{Type: "answer", SDP: answer.SDP})

	case "candidate":
		var ci webrtc.ICECandidateInit
		if err := json.Unmarshal(env.Candidate, &ci); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("bad candidate")
			return false, ""
		}
		if err := c.pc.AddICECandidate(ci); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("add candidate")
		}

	case "peer_joined":
		c.emit(core.ParticipantJoinedEvent{Participant: domain.Participant{
			SID:      domain.ParticipantSID(env.SID),
			Identity: env.Identity,
			Name:     env.Name,
			IsMuted:  env.Muted,
		}})

	case "peer_left":
		c.emit(core.ParticipantLeftEvent{SID: domain.ParticipantSID(env.SID)})

	case "track":
		c.mu.Lock()
		c.trackMeta[env.MediaID] = trackMeta{
			info: domain.TrackInfo{
				SID:            domain.TrackSID(env.TrackSID),
				ParticipantSID: domain.ParticipantSID(env.ParticipantSID),
				Kind:           parseKind(env.Kind),
				Source:         parseSource(env.Source),
			},
			width:  env.Width,
			height: env.Height,
		}
		c.mu.Unlock()

	case "track_removed":
		c.mu.Lock()
		delete(c.trackMeta, env.MediaID)
		c.mu.Unlock()
		c.emit(core.TrackUnsubscribedEvent{
			SID:            domain.TrackSID(env.TrackSID),
			ParticipantSID: domain.ParticipantSID(env.ParticipantSID),
			Kind:           parseKind(env.Kind),
		})

	case "mute":
		if env.Muted {
			c.emit(core.TrackMutedEvent{ParticipantSID: domain.ParticipantSID(env.ParticipantSID), Source: parseSource(env.Source)})
		} else {
			c.emit(core.TrackUnmutedEvent{ParticipantSID: domain.ParticipantSID(env.ParticipantSID), Source: parseSource(env.Source)})
		}

	case "speakers":
		sids := make([]domain.ParticipantSID, 0, len(env.SIDs))
		for _, s := range env.SIDs {
			sids = append(sids, domain.ParticipantSID(s))
		}
		c.emit(core.ActiveSpeakersEvent{SIDs: sids})

	case "attributes":
		c.emit(core.AttributesChangedEvent{
			ParticipantSID: domain.ParticipantSID(env.ParticipantSID),
			Attributes:     env.Attributes,
		})

	case "quality":
		c.emit(core.ConnectionQualityEvent{
			ParticipantSID: domain.ParticipantSID(env.ParticipantSID),
			Quality:        parseQuality(env.Quality),
		})

	case "chat":
		c.emit(core.TextStreamEvent{
			Topic:      env.Topic,
			SenderSID:  domain.ParticipantSID(env.ParticipantSID),
			SenderName: env.Name,
			Reader: &bufferedTextReader{
				id:   env.ID,
				ts:   env.TimestampMS,
				text: env.Text,
			},
		})

	case "data":
		payload, err := base64.StdEncoding.DecodeString(env.Payload)
		if err != nil {
			log.Warn().Err(err).Str("module", "rtc").Msg("bad data payload")
			return false, ""
		}
		c.emit(core.DataEvent{
			Topic:           env.Topic,
			ParticipantSID:  domain.ParticipantSID(env.ParticipantSID),
			ParticipantName: env.Name,
			Payload:         payload,
		})

	case "bye":
		return true, env.Reason

	default:
		log.Warn().Str("module", "rtc").Str("type", env.Type).Msg("unknown signal")
	}
	return false, ""
}

// onTrack pairs an arriving pion track with the metadata announced over
// signalling and publishes the subscription.
func (c *Client) onTrack(ctx context.Context, track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	c.mu.RLock()
	meta, ok := c.trackMeta[track.ID()]
	c.mu.RUnlock()
	if !ok {
		// No announcement yet; synthesize minimal metadata.
		meta = trackMeta{info: domain.TrackInfo{
			SID:  domain.TrackSID(track.ID()),
			Kind: pionKind(track.Kind()),
		}}
	}

	switch meta.info.Kind {
	case domain.TrackKindVideo:
		c.emit(core.TrackSubscribedEvent{
			Info: meta.info,
			Video: &remoteVideoTrack{
				sid:    meta.info.SID,
				src:    track,
				width:  meta.width,
				height: meta.height,
				parent: ctx,
			},
		})
	case domain.TrackKindAudio:
		c.emit(core.TrackSubscribedEvent{
			Info:  meta.info,
			Audio: newRemoteAudioSource(ctx, meta.info.SID, track),
		})
	}
}

// bufferedTextReader serves a text stream that arrived as one frame.
type bufferedTextReader struct {
	id   string
	ts   int64
	text string
}

func (r *bufferedTextReader) ID() string         { return r.id }
func (r *bufferedTextReader) TimestampMS() int64 { return r.ts }
func (r *bufferedTextReader) ReadAll(ctx context.Context) (string, error) {
	return r.text, nil
}

func parseKind(s string) domain.TrackKind {
	if s == "video" {
		return domain.TrackKindVideo
	}
	return domain.TrackKindAudio
}

func pionKind(k webrtc.RTPCodecType) domain.TrackKind {
	if k == webrtc.RTPCodecTypeVideo {
		return domain.TrackKindVideo
	}
	return domain.TrackKindAudio
}

func parseSource(s string) domain.TrackSource {
	switch s {
	case "microphone":
		return domain.TrackSourceMicrophone
	case "camera":
		return domain.TrackSourceCamera
	case "screen_share":
		return domain.TrackSourceScreenShare
	default:
		return domain.TrackSourceUnknown
	}
}

func parseQuality(s string) domain.ConnectionQuality {
	switch s {
	case "excellent":
		return domain.QualityExcellent
	case "good":
		return domain.QualityGood
	case "poor":
		return domain.QualityPoor
	default:
		return domain.QualityLost
	}
}
