// Package replication streams committed campus views from a primary to
// read-only replicas over nanomsg sockets.
package replication

import (
	"io"
	"time"
)

// Socket is the part of a nanomsg socket replication relies on. Tests
// substitute in-memory pairs.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is the primary's side: it binds.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// DialSocket is the replica's side: it connects.
type DialSocket interface {
	Socket
	Dial(addr string) error
}

// SubscribeSocket receives the snapshot stream.
type SubscribeSocket interface {
	DialSocket
	Subscribe(topic []byte) error
}

// SurveySocket polls replicas for their applied version.
type SurveySocket interface {
	ListenSocket
	SetSurveyTime(d time.Duration) error
}

// SocketFactory opens the four sockets replication uses: PUB/SUB for
// snapshots and SURVEYOR/RESPONDENT for health.
type SocketFactory interface {
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)
	NewSurveyorSocket() (SurveySocket, error)
	NewRespondentSocket() (DialSocket, error)
}
