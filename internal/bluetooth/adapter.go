package bluetooth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	ble "tinygo.org/x/bluetooth"
)

// deviceInfoReadLimit bounds a device-info characteristic read. The
// payload is a small JSON document, well under one attribute value.
const deviceInfoReadLimit = 512

var (
	serviceUUID        = mustUUID(ServiceUUID)
	commandCharUUID    = mustUUID(CommandCharUUID)
	stateCharUUID      = mustUUID(StateCharUUID)
	deviceInfoCharUUID = mustUUID(DeviceInfoCharUUID)
)

func mustUUID(s string) ble.UUID {
	u, err := ble.ParseUUID(s)
	if err != nil {
		panic(fmt.Sprintf("bluetooth: bad profile uuid %q: %v", s, err))
	}
	return u
}

// Adapter implements Transport over the host Bluetooth stack.
type Adapter struct {
	adapter *ble.Adapter
	logger  *slog.Logger

	mu sync.Mutex
	// seen caches native addresses from the last scan so Connect can
	// dial without re-parsing platform address formats.
	seen   map[string]ble.Address
	onDrop func(address string)
}

// NewAdapter wraps the default host adapter. Enable must be called
// before scanning or connecting.
func NewAdapter(logger *slog.Logger) *Adapter {
	a := &Adapter{
		adapter: ble.DefaultAdapter,
		logger:  logger,
		seen:    make(map[string]ble.Address),
	}
	a.adapter.SetConnectHandler(func(device ble.Device, connected bool) {
		if connected {
			return
		}
		a.mu.Lock()
		handler := a.onDrop
		a.mu.Unlock()
		if handler != nil {
			handler(device.Address.String())
		}
	})
	return a
}

func (a *Adapter) Enable() error {
	return a.adapter.Enable()
}

// Scan streams advertisements until the context ends. The window ending
// is not an error; only stack failures surface.
func (a *Adapter) Scan(ctx context.Context, found func(Advertisement)) error {
	a.mu.Lock()
	a.seen = make(map[string]ble.Address)
	a.mu.Unlock()

	errc := make(chan error, 1)
	go func() {
		errc <- a.adapter.Scan(func(_ *ble.Adapter, result ble.ScanResult) {
			a.mu.Lock()
			a.seen[result.Address.String()] = result.Address
			a.mu.Unlock()
			found(Advertisement{
				Address: result.Address.String(),
				Name:    result.LocalName(),
				RSSI:    result.RSSI,
			})
		})
	}()

	select {
	case <-ctx.Done():
		if err := a.adapter.StopScan(); err != nil {
			a.logger.Warn("stopping scan", "error", err)
		}
		<-errc
		return nil
	case err := <-errc:
		return err
	}
}

func (a *Adapter) StopScan() error {
	return a.adapter.StopScan()
}

func (a *Adapter) SetDisconnectHandler(handler func(address string)) {
	a.mu.Lock()
	a.onDrop = handler
	a.mu.Unlock()
}

// Connect dials the peripheral at address. The underlying stack call
// has no cancellation, so a context end abandons the attempt and
// releases any late-arriving link.
func (a *Adapter) Connect(ctx context.Context, address string) (Peripheral, error) {
	target, err := a.resolve(address)
	if err != nil {
		return nil, err
	}

	type dialed struct {
		device ble.Device
		err    error
	}
	resc := make(chan dialed, 1)
	go func() {
		device, err := a.adapter.Connect(target, ble.ConnectionParams{})
		resc <- dialed{device: device, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-resc; res.err == nil {
				if err := res.device.Disconnect(); err != nil {
					a.logger.Warn("releasing abandoned link", "address", address, "error", err)
				}
			}
		}()
		return nil, ctx.Err()
	case res := <-resc:
		if res.err != nil {
			return nil, res.err
		}
		return &blePeripheral{device: res.device, address: address}, nil
	}
}

func (a *Adapter) resolve(address string) (ble.Address, error) {
	a.mu.Lock()
	cached, ok := a.seen[address]
	a.mu.Unlock()
	if ok {
		return cached, nil
	}
	mac, err := ble.ParseMAC(address)
	if err != nil {
		return ble.Address{}, fmt.Errorf("parsing device address %q: %w", address, err)
	}
	return ble.Address{MACAddress: ble.MACAddress{MAC: mac}}, nil
}

// blePeripheral carries a connected device and, after DiscoverProfile,
// its three companion characteristics.
type blePeripheral struct {
	device  ble.Device
	address string

	command    ble.DeviceCharacteristic
	state      ble.DeviceCharacteristic
	deviceInfo ble.DeviceCharacteristic
}

func (p *blePeripheral) DiscoverProfile(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	services, err := p.device.DiscoverServices([]ble.UUID{serviceUUID})
	if err != nil {
		return fmt.Errorf("discovering companion service: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("device %s does not expose service %s", p.address, ServiceUUID)
	}
	chars, err := services[0].DiscoverCharacteristics([]ble.UUID{commandCharUUID, stateCharUUID, deviceInfoCharUUID})
	if err != nil {
		return fmt.Errorf("discovering companion characteristics: %w", err)
	}
	// Results come back in request order.
	p.command, p.state, p.deviceInfo = chars[0], chars[1], chars[2]
	return nil
}

func (p *blePeripheral) ReadDeviceInfo(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf := make([]byte, deviceInfoReadLimit)
	n, err := p.deviceInfo.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading device info characteristic: %w", err)
	}
	return buf[:n], nil
}

func (p *blePeripheral) WriteCommand(ctx context.Context, payload []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.command.WriteWithoutResponse(payload)
	if err != nil {
		return n, fmt.Errorf("writing command characteristic: %w", err)
	}
	return n, nil
}

func (p *blePeripheral) Subscribe(notify func(payload []byte)) error {
	return p.state.EnableNotifications(func(buf []byte) {
		// The stack may reuse buf between callbacks.
		payload := make([]byte, len(buf))
		copy(payload, buf)
		notify(payload)
	})
}

func (p *blePeripheral) Disconnect() error {
	return p.device.Disconnect()
}
