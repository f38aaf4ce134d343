package port_reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestSelectPort(t *testing.T) {
	tests := []struct {
		name  string
		ports []*enumerator.PortDetails
		want  string
	}{
		{
			name: "preferred bridge wins over earlier usb port",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341"},
				{Name: "/dev/ttyUSB0", IsUSB: true, VID: "10c4"},
			},
			want: "/dev/ttyUSB0",
		},
		{
			name: "any usb port before built in uart",
			ports: []*enumerator.PortDetails{
				{Name: "/dev/ttyS0"},
				{Name: "/dev/ttyACM0", IsUSB: true, VID: "2341"},
			},
			want: "/dev/ttyACM0",
		},
		{
			name:  "falls back to first port",
			ports: []*enumerator.PortDetails{{Name: "/dev/ttyS0"}, {Name: "/dev/ttyS1"}},
			want:  "/dev/ttyS0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := selectPort(tt.ports)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectPort_None(t *testing.T) {
	_, err := selectPort(nil)
	assert.ErrorIs(t, err, ErrNoSerialPorts)
}

func TestResolveDevice_PassesExplicitPathThrough(t *testing.T) {
	got, err := ResolveDevice("/dev/ttyUSB7")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB7", got)
}
