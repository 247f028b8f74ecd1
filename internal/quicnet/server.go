package quicnet

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log"
	"math/big"
	"net"
	"time"

	quic "github.com/quic-go/quic-go"

	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/internal/turn"
	"github.com/mithrel/medchat/pkg/api"
)

const alpn = "medchat-render/1"

// maxFrame bounds a single request or response body.
const maxFrame = 1 << 20

// Request ops. The first byte of every request frame selects how the text is
// treated before rendering.
const (
	OpRender byte = 0
	OpTurn   byte = 1
)

var (
	ErrMissingTLS    = errors.New("missing TLS configuration")
	ErrFrameTooLarge = errors.New("frame too large")
	ErrUnknownOp     = errors.New("unknown op")
	ErrBadRequest    = errors.New("malformed request frame")
)

// Stream error codes sent when a stream is cancelled instead of answered.
const (
	codeBadRequest    quic.StreamErrorCode = 1
	codeUnknownOp     quic.StreamErrorCode = 2
	codeReplyTooLarge quic.StreamErrorCode = 3
	codeWriteFailed   quic.StreamErrorCode = 4
)

// Server answers render requests on QUIC streams. Each stream carries one
// length-prefixed request and one length-prefixed JSON reply.
type Server struct {
	l   *quic.Listener
	log *log.Logger
}

// Listen binds addr. ALPN is added to tlsConf when missing.
func Listen(addr string, tlsConf *tls.Config, logger *log.Logger) (*Server, error) {
	if tlsConf == nil {
		return nil, ErrMissingTLS
	}
	withALPN(tlsConf)
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	l, err := quic.ListenAddr(addr, tlsConf, &quic.Config{MaxIdleTimeout: 30 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Server{l: l, log: logger}, nil
}

// Addr is the bound UDP address.
func (s *Server) Addr() net.Addr { return s.l.Addr() }

// Serve accepts connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	defer s.l.Close()
	errc := make(chan error, 1)
	go func() {
		for {
			conn, err := s.l.Accept(ctx)
			if err != nil {
				errc <- err
				return
			}
			go s.handleConn(ctx, conn)
		}
	}()

	select {
	case <-ctx.Done():
		_ = s.l.Close()
		return nil
	case err := <-errc:
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
}

// Serve listens on addr and serves until ctx is cancelled.
func Serve(ctx context.Context, addr string, tlsConf *tls.Config, logger *log.Logger) error {
	s, err := Listen(addr, tlsConf, logger)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

func (s *Server) handleConn(ctx context.Context, conn quic.Connection) {
	for {
		st, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go s.handleStream(st, conn.RemoteAddr())
	}
}

func (s *Server) handleStream(st quic.Stream, remote net.Addr) {
	defer st.Close()
	_ = st.SetDeadline(time.Now().Add(10 * time.Second))

	req, err := readFrame(st)
	if err != nil {
		s.log.Printf("quic: %s read: %v", remote, err)
		st.CancelRead(codeBadRequest)
		st.CancelWrite(codeBadRequest)
		return
	}
	out, err := handle(req)
	if err != nil {
		s.log.Printf("quic: %s: %v", remote, err)
		st.CancelWrite(codeUnknownOp)
		return
	}
	if err := writeFrame(st, out); err != nil {
		s.log.Printf("quic: %s write: %v", remote, err)
		if errors.Is(err, ErrFrameTooLarge) {
			st.CancelWrite(codeReplyTooLarge)
		} else {
			st.CancelWrite(codeWriteFailed)
		}
	}
}

// streamError maps a cancellation from the peer to this package's errors.
func streamError(err error) error {
	var se *quic.StreamError
	if !errors.As(err, &se) || !se.Remote {
		return err
	}
	switch se.ErrorCode {
	case codeBadRequest:
		return ErrBadRequest
	case codeUnknownOp:
		return ErrUnknownOp
	case codeReplyTooLarge:
		return fmt.Errorf("reply: %w", ErrFrameTooLarge)
	}
	return err
}

// handle renders one request frame: an op byte followed by UTF-8 text.
func handle(req []byte) ([]byte, error) {
	if len(req) == 0 {
		return nil, ErrUnknownOp
	}
	text := string(req[1:])
	switch req[0] {
	case OpRender:
	case OpTurn:
		text = turn.Split(text).Text
	default:
		return nil, fmt.Errorf("%w %d", ErrUnknownOp, req[0])
	}
	nodes := render.Render(text)
	if nodes == nil {
		nodes = []api.Node{}
	}
	return json.Marshal(nodes)
}

func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrame {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(w io.Writer, b []byte) error {
	if len(b) > maxFrame {
		return ErrFrameTooLarge
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(b)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func withALPN(c *tls.Config) {
	for _, p := range c.NextProtos {
		if p == alpn {
			return
		}
	}
	c.NextProtos = append(c.NextProtos, alpn)
}

// SelfSignedTLS is for local use and tests. Prefer trusted certs in production.
func SelfSignedTLS() (*tls.Config, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	templ := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
	}
	der, err := x509.CreateCertificate(rand.Reader, templ, templ, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	priv := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8})
	tlsCert, err := tls.X509KeyPair(cert, priv)
	if err != nil {
		return nil, err
	}
	return &tls.Config{Certificates: []tls.Certificate{tlsCert}, NextProtos: []string{alpn}}, nil
}
