package link

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialConfig configures a serial bridge.
type SerialConfig struct {
	Port     string
	BaudRate uint
}

// Serial reads newline-delimited JSON envelopes from a serial bridge and
// writes pointer and gesture events back as JSON lines.
type Serial struct {
	cfg  SerialConfig
	open func(serial.OpenOptions) (io.ReadWriteCloser, error)

	mu   sync.Mutex
	port io.ReadWriteCloser
}

// NewSerial creates a Serial link for cfg. The port is opened by Run.
func NewSerial(cfg SerialConfig) *Serial {
	return &Serial{cfg: cfg, open: serial.Open}
}

// Options returns the port options used by Run.
func (s *Serial) Options() serial.OpenOptions {
	return serial.OpenOptions{
		PortName:              s.cfg.Port,
		BaudRate:              s.cfg.BaudRate,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
}

// Run opens the port and feeds every envelope read from it to sink until ctx
// is canceled or the port fails.
func (s *Serial) Run(ctx context.Context, sink Sink) error {
	port, err := s.open(s.Options())
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Port, err)
	}
	log.Printf("link: serial port opened on %s at %d baud", s.cfg.Port, s.cfg.BaudRate)

	s.mu.Lock()
	s.port = port
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { port.Close() })
	defer stop()
	defer s.close()

	err = ReadLines(port, sink)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ReadLines decodes newline-delimited envelopes from r and dispatches them
// to sink until EOF. Blank and malformed lines are skipped.
func ReadLines(r io.Reader, sink Sink) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if msg, derr := Decode([]byte(line)); derr != nil {
				log.Printf("link: skipping line: %v", derr)
			} else {
				Dispatch(sink, msg)
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read serial: %w", err)
		}
	}
}

// PublishPointer implements Publisher.
func (s *Serial) PublishPointer(e PointerEvent) error {
	return s.writeLine(e)
}

// PublishGesture implements Publisher.
func (s *Serial) PublishGesture(e GestureEvent) error {
	return s.writeLine(e)
}

func (s *Serial) writeLine(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return errors.New("serial port not open")
	}
	_, err = s.port.Write(append(payload, '\n'))
	return err
}

func (s *Serial) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
}
