package domain

import "fmt"

// ConnectionPhase is the coarse connection lifecycle position.
type ConnectionPhase int

const (
	PhaseDisconnected ConnectionPhase = iota
	PhaseConnecting
	PhaseConnected
	PhaseReconnecting
)

func (p ConnectionPhase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// ConnectionState is the session connection state. Attempt is non-zero
// only while Phase is PhaseReconnecting.
type ConnectionState struct {
	Phase   ConnectionPhase
	Attempt uint32
}

func (s ConnectionState) String() string {
	if s.Phase == PhaseReconnecting {
		return fmt.Sprintf("reconnecting(%d)", s.Attempt)
	}
	return s.Phase.String()
}

// ConnectionQuality is the transport-reported link quality for one participant.
type ConnectionQuality int

const (
	QualityExcellent ConnectionQuality = iota
	QualityGood
	QualityPoor
	QualityLost
)

func (q ConnectionQuality) String() string {
	switch q {
	case QualityExcellent:
		return "excellent"
	case QualityGood:
		return "good"
	case QualityPoor:
		return "poor"
	case QualityLost:
		return "lost"
	default:
		return "unknown"
	}
}
