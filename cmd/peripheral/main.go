// Command peripheral runs a demo companion device on the host Bluetooth
// adapter. It advertises the RUConnect GATT profile, echoes every
// command write back on the state characteristic, and serves a static
// identity on the device-info characteristic. Point the daemon at it to
// exercise the full scan/connect/write/notify cycle without hardware.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	ble "tinygo.org/x/bluetooth"

	"ruconnect/internal/bluetooth"
)

func main() {
	name := flag.String("name", "ruconnect-companion", "advertised local name")
	firmware := flag.String("firmware", "0.3.1", "reported firmware version")
	serial := flag.String("serial", "RC-DEMO-0001", "reported serial number")
	flag.Parse()

	if err := run(*name, *firmware, *serial); err != nil {
		log.Fatal(err)
	}
}

func run(name, firmware, serial string) error {
	adapter := ble.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}

	info, err := json.Marshal(bluetooth.DeviceInfo{
		Name:     name,
		Firmware: firmware,
		Serial:   serial,
	})
	if err != nil {
		return fmt.Errorf("marshal device info: %w", err)
	}

	serviceUUID, err := ble.ParseUUID(bluetooth.ServiceUUID)
	if err != nil {
		return fmt.Errorf("parse service uuid: %w", err)
	}
	commandUUID, err := ble.ParseUUID(bluetooth.CommandCharUUID)
	if err != nil {
		return fmt.Errorf("parse command uuid: %w", err)
	}
	stateUUID, err := ble.ParseUUID(bluetooth.StateCharUUID)
	if err != nil {
		return fmt.Errorf("parse state uuid: %w", err)
	}
	deviceInfoUUID, err := ble.ParseUUID(bluetooth.DeviceInfoCharUUID)
	if err != nil {
		return fmt.Errorf("parse device info uuid: %w", err)
	}

	// The state characteristic handle is needed inside the command write
	// callback, so it is declared before the service is registered.
	var state ble.Characteristic

	service := ble.Service{
		UUID: serviceUUID,
		Characteristics: []ble.CharacteristicConfig{
			{
				UUID:  commandUUID,
				Flags: ble.CharacteristicWritePermission | ble.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client ble.Connection, offset int, value []byte) {
					log.Printf("command received (%d bytes), echoing on state", len(value))
					if _, err := state.Write(value); err != nil {
						log.Printf("notify failed: %v", err)
					}
				},
			},
			{
				Handle: &state,
				UUID:   stateUUID,
				Flags:  ble.CharacteristicNotifyPermission,
			},
			{
				UUID:  deviceInfoUUID,
				Value: info,
				Flags: ble.CharacteristicReadPermission,
			},
		},
	}
	if err := adapter.AddService(&service); err != nil {
		return fmt.Errorf("register service: %w", err)
	}

	adv := adapter.DefaultAdvertisement()
	if err := adv.Configure(ble.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []ble.UUID{serviceUUID},
	}); err != nil {
		return fmt.Errorf("configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("start advertising: %w", err)
	}
	log.Printf("advertising as %q, serial %s", name, serial)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	if err := adv.Stop(); err != nil {
		return fmt.Errorf("stop advertising: %w", err)
	}
	log.Print("stopped")
	return nil
}
