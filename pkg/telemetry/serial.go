// Package telemetry carries exported log records off the robot, over the
// UART link or an MQTT broker.
package telemetry

import (
	"io"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

const DefaultBaud = 115200

type Serial struct {
	port io.WriteCloser
}

func OpenSerial(dev string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(dev, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", dev)
	}
	return &Serial{port: p}, nil
}

func (s *Serial) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

// WriteLine writes text followed by CRLF.
func (s *Serial) WriteLine(text string) error {
	_, err := io.WriteString(s.port, text+"\r\n")
	return err
}

func (s *Serial) Close() error {
	return s.port.Close()
}
