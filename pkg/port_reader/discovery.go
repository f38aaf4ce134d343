package port_reader

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// AutoDevice asks the reader to pick a serial port on every (re)connect.
const AutoDevice = "auto"

var ErrNoSerialPorts = errors.New("no serial ports found")

// USB bridge vendors found on ESP32 boards: CP210x, CH340, FTDI, Espressif native USB.
var preferredVIDs = map[string]bool{
	"10C4": true,
	"1A86": true,
	"0403": true,
	"303A": true,
}

// ListPorts returns every serial port the OS reports.
func ListPorts() ([]*enumerator.PortDetails, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	return ports, nil
}

// ResolveDevice returns device unchanged unless it is AutoDevice.
func ResolveDevice(device string) (string, error) {
	if device != AutoDevice {
		return device, nil
	}
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	return selectPort(ports)
}

func selectPort(ports []*enumerator.PortDetails) (string, error) {
	for _, p := range ports {
		if p.IsUSB && preferredVIDs[strings.ToUpper(p.VID)] {
			return p.Name, nil
		}
	}
	for _, p := range ports {
		if p.IsUSB {
			return p.Name, nil
		}
	}
	if len(ports) > 0 {
		return ports[0].Name, nil
	}
	return "", ErrNoSerialPorts
}
