package bluetooth

import "context"

// Companion GATT profile. The microcontroller exposes one service with a
// write, a notify and a read characteristic; the firmware echoes every
// command payload back on the state characteristic.
const (
	ServiceUUID        = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	CommandCharUUID    = "6e400002-b5a3-f393-e0a9-e50e24dcca9e"
	StateCharUUID      = "6e400003-b5a3-f393-e0a9-e50e24dcca9e"
	DeviceInfoCharUUID = "6e400004-b5a3-f393-e0a9-e50e24dcca9e"
)

// Advertisement is one sighting of a peripheral during a scan.
type Advertisement struct {
	Address string
	Name    string
	RSSI    int16
}

// Transport is the physical Bluetooth layer. Scan blocks until the
// context ends or StopScan is called and returns nil in both cases;
// a non-nil error means the stack itself failed. The disconnect
// handler fires whenever an established link drops, including drops
// the manager requested.
type Transport interface {
	Enable() error
	Scan(ctx context.Context, found func(Advertisement)) error
	StopScan() error
	Connect(ctx context.Context, address string) (Peripheral, error)
	SetDisconnectHandler(handler func(address string))
}

// Peripheral is an established link to a companion device. DiscoverProfile
// must succeed before the characteristic operations are usable.
type Peripheral interface {
	DiscoverProfile(ctx context.Context) error
	ReadDeviceInfo(ctx context.Context) ([]byte, error)
	WriteCommand(ctx context.Context, payload []byte) (int, error)
	Subscribe(notify func(payload []byte)) error
	Disconnect() error
}
