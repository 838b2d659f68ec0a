package utils

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
)

// CANWriter transmits frames on a bus.
type CANWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

// CANReader receives frames from a bus.
type CANReader interface {
	ReadFrame(ctx context.Context) (can.Frame, error)
	Close() error
}

var errSocketClosed = errors.New("socket closed")

// WriteFrames transmits frames in order and stops at the first failure.
func WriteFrames(ctx context.Context, w CANWriter, frames []can.Frame) error {
	for i, f := range frames {
		if err := w.WriteFrame(ctx, f); err != nil {
			return fmt.Errorf("frame %d/%d (0x%X): %w", i+1, len(frames), f.ID, err)
		}
	}
	return nil
}

type busConn struct {
	iface string
	conn  net.Conn
}

func dialBus(ctx context.Context, iface string) (busConn, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return busConn{}, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return busConn{iface: iface, conn: conn}, nil
}

func (b busConn) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

// SocketCANWriter sends path frames on a SocketCAN interface.
type SocketCANWriter struct {
	busConn
	tx *socketcan.Transmitter
}

// NewSocketCANWriter dials iface (vcan0, can0, ...) for transmitting.
func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	b, err := dialBus(ctx, iface)
	if err != nil {
		return nil, err
	}
	return &SocketCANWriter{busConn: b, tx: socketcan.NewTransmitter(b.conn)}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	if err := w.tx.TransmitFrame(ctx, frame); err != nil {
		return fmt.Errorf("%s tx: %w", w.iface, err)
	}
	return nil
}

// SocketCANReader receives telemetry frames from a SocketCAN interface.
type SocketCANReader struct {
	busConn
	recv *socketcan.Receiver
}

func NewSocketCANReader(ctx context.Context, iface string) (*SocketCANReader, error) {
	b, err := dialBus(ctx, iface)
	if err != nil {
		return nil, err
	}
	return &SocketCANReader{busConn: b, recv: socketcan.NewReceiver(b.conn)}, nil
}

// ReadFrame blocks until a frame arrives or ctx is done. Cancelling ctx does not
// interrupt the pending socket read; Close does.
func (r *SocketCANReader) ReadFrame(ctx context.Context) (can.Frame, error) {
	type result struct {
		frame can.Frame
		err   error
	}
	done := make(chan result, 1)

	go func() {
		if r.recv.Receive() {
			done <- result{frame: r.recv.Frame()}
			return
		}
		err := r.recv.Err()
		if err == nil {
			err = errSocketClosed
		}
		done <- result{err: fmt.Errorf("%s rx: %w", r.iface, err)}
	}()

	select {
	case <-ctx.Done():
		return can.Frame{}, ctx.Err()
	case res := <-done:
		return res.frame, res.err
	}
}
