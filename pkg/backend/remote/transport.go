package remote

import (
	"bufio"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
)

// Transport carries wire messages between the backend and the frontend that
// owns the real rendering tree. Send and Receive operate on whole messages;
// framing is the transport's concern.
type Transport interface {
	Send(msg []byte) error
	// Receive blocks until the next message arrives. It returns io.EOF when
	// the peer has closed the connection.
	Receive() ([]byte, error)
	Close() error
}

type streamTransport struct {
	in  *bufio.Reader
	inc io.Closer
	out io.WriteCloser
}

// NewStreamTransport frames messages over a byte stream as
// "<length> <payload>\n". This suits pipes and sockets, including stdin and
// stdout pairs.
func NewStreamTransport(rw io.ReadWriteCloser) Transport {
	return NewSplitStreamTransport(rw, rw)
}

// NewSplitStreamTransport is NewStreamTransport with separate read and write
// streams.
func NewSplitStreamTransport(in io.ReadCloser, out io.WriteCloser) Transport {
	return &streamTransport{in: bufio.NewReader(in), inc: in, out: out}
}

func (t *streamTransport) Send(msg []byte) error {
	_, err := fmt.Fprintf(t.out, "%d %s\n", len(msg), msg)
	return err
}

func (t *streamTransport) Receive() ([]byte, error) {
	var size int
	for {
		b, err := t.in.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == ' ' {
			break
		}
		if b < '0' || b > '9' {
			return nil, fmt.Errorf("remote: malformed frame header byte %q", b)
		}
		size = size*10 + int(b-'0')
	}
	msg := make([]byte, size)
	if _, err := io.ReadFull(t.in, msg); err != nil {
		return nil, err
	}
	if b, err := t.in.ReadByte(); err != nil {
		return nil, err
	} else if b != '\n' {
		return nil, fmt.Errorf("remote: missing frame terminator, got %q", b)
	}
	return msg, nil
}

func (t *streamTransport) Close() error {
	t.inc.Close()
	return t.out.Close()
}

type websocketTransport struct {
	conn *websocket.Conn
}

// NewWebsocketTransport carries messages over a websocket connection. The
// websocket's own frames do the delimiting, one text message per wire
// message.
func NewWebsocketTransport(conn *websocket.Conn) Transport {
	return &websocketTransport{conn: conn}
}

func (t *websocketTransport) Send(msg []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, msg)
}

func (t *websocketTransport) Receive() ([]byte, error) {
	_, msg, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}
	return msg, nil
}

func (t *websocketTransport) Close() error {
	return t.conn.Close()
}
