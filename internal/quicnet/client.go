package quicnet

import (
	"context"
	"crypto/tls"
	"time"

	quic "github.com/quic-go/quic-go"

	"github.com/mithrel/medchat/pkg/api"
)

// Client renders text on a remote Server over one QUIC connection.
type Client struct {
	conn quic.Connection
}

// Dial connects to addr. A nil tlsConf skips certificate verification, which
// suits the self-signed development server only.
func Dial(ctx context.Context, addr string, tlsConf *tls.Config) (*Client, error) {
	if tlsConf == nil {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	tlsConf = tlsConf.Clone()
	tlsConf.NextProtos = []string{alpn}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, &quic.Config{})
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Render sends text with op and decodes the node list in the reply.
func (c *Client) Render(ctx context.Context, op byte, text string) ([]api.Node, time.Duration, error) {
	start := time.Now()
	s, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, 0, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(dl)
	}
	req := make([]byte, 0, len(text)+1)
	req = append(req, op)
	req = append(req, text...)
	if err := writeFrame(s, req); err != nil {
		s.CancelWrite(codeBadRequest)
		s.CancelRead(codeBadRequest)
		return nil, 0, err
	}
	// Closing the send side signals the end of the request.
	if err := s.Close(); err != nil {
		s.CancelRead(codeBadRequest)
		return nil, 0, err
	}
	out, err := readFrame(s)
	if err != nil {
		s.CancelRead(codeBadRequest)
		return nil, 0, streamError(err)
	}
	nodes, err := api.DecodeNodes(out)
	if err != nil {
		return nil, 0, err
	}
	return nodes, time.Since(start), nil
}

func (c *Client) Close() error {
	return c.conn.CloseWithError(0, "done")
}
