package replication

import (
	"errors"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.nanomsg.org/mangos/v3/protocol/pub"
	"go.nanomsg.org/mangos/v3/protocol/respondent"
	"go.nanomsg.org/mangos/v3/protocol/sub"
	"go.nanomsg.org/mangos/v3/protocol/surveyor"

	// Register all transports
	_ "go.nanomsg.org/mangos/v3/transport/all"
)

// mangosSocket wraps a mangos.Socket to implement Socket.
type mangosSocket struct {
	sock mangos.Socket
}

func (s *mangosSocket) Send(data []byte) error {
	return s.sock.Send(data)
}

func (s *mangosSocket) Recv() ([]byte, error) {
	return s.sock.Recv()
}

func (s *mangosSocket) Close() error {
	return s.sock.Close()
}

func (s *mangosSocket) SetRecvDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionRecvDeadline, d)
}

func (s *mangosSocket) SetSendDeadline(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSendDeadline, d)
}

func (s *mangosSocket) Listen(addr string) error {
	return s.sock.Listen(addr)
}

// Dial connects in the background so replicas may start before the primary.
func (s *mangosSocket) Dial(addr string) error {
	return s.sock.DialOptions(addr, map[string]interface{}{mangos.OptionDialAsynch: true})
}

type mangosSubSocket struct {
	mangosSocket
}

func (s *mangosSubSocket) Subscribe(topic []byte) error {
	return s.sock.SetOption(mangos.OptionSubscribe, topic)
}

type mangosSurveySocket struct {
	mangosSocket
}

func (s *mangosSurveySocket) SetSurveyTime(d time.Duration) error {
	return s.sock.SetOption(mangos.OptionSurveyTime, d)
}

// MangosSocketFactory creates mangos (pure Go nanomsg) sockets.
type MangosSocketFactory struct{}

// NewMangosSocketFactory creates a new mangos socket factory.
func NewMangosSocketFactory() *MangosSocketFactory {
	return &MangosSocketFactory{}
}

func (f *MangosSocketFactory) NewPubSocket() (ListenSocket, error) {
	sock, err := pub.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

func (f *MangosSocketFactory) NewSubSocket() (SubscribeSocket, error) {
	sock, err := sub.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSubSocket{mangosSocket{sock: sock}}, nil
}

func (f *MangosSocketFactory) NewSurveyorSocket() (SurveySocket, error) {
	sock, err := surveyor.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSurveySocket{mangosSocket{sock: sock}}, nil
}

func (f *MangosSocketFactory) NewRespondentSocket() (DialSocket, error) {
	sock, err := respondent.NewSocket()
	if err != nil {
		return nil, err
	}
	return &mangosSocket{sock: sock}, nil
}

// isClosed reports whether err means the socket was closed underneath a
// blocked call.
func isClosed(err error) bool {
	return errors.Is(err, mangos.ErrClosed)
}

// isTimeout reports whether err is a receive deadline or an expired survey.
func isTimeout(err error) bool {
	return errors.Is(err, mangos.ErrRecvTimeout) || errors.Is(err, mangos.ErrProtoState)
}

var _ SocketFactory = (*MangosSocketFactory)(nil)
