//go:build !linux

package transport

import "time"

// Socket is unavailable off linux; every method reports
// ErrUnsupportedPlatform.
type Socket struct{}

func Open(proto int) (*Socket, error) {
	return nil, ErrUnsupportedPlatform
}

func (s *Socket) Bind(pid uint32) error                { return ErrUnsupportedPlatform }
func (s *Socket) LocalPID() uint32                     { return 0 }
func (s *Socket) SetReceiveBuffer(bytes int) error     { return ErrUnsupportedPlatform }
func (s *Socket) SetReadTimeout(d time.Duration) error { return ErrUnsupportedPlatform }
func (s *Socket) Send(b []byte) (int, error)           { return 0, ErrUnsupportedPlatform }
func (s *Socket) Receive(max int) ([]byte, error)      { return nil, ErrUnsupportedPlatform }
func (s *Socket) Close() error                         { return nil }
