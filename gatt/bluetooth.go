package gatt

import "tinygo.org/x/bluetooth"

// uuid16 builds a Bluetooth Base UUID from a 16-bit SIG-assigned value,
// the construction every adopted GATT/HID UUID here uses.
func uuid16(v uint16) bluetooth.UUID {
	return bluetooth.New16BitUUID(v)
}

// ToBluetoothService translates a ServiceDesc into a *bluetooth.Service
// ready for Adapter.AddService, wiring each CharSpec's WriteEvent back
// through onWrite. The caller (the server facade) supplies onWrite and
// the initial characteristic values, so this package never needs a
// reference to the facade or the Registry that produced desc.
//
// handles is filled in with the live *bluetooth.Characteristic for every
// CharRef, keyed the same way desc.Characteristics is, so the caller can
// later call Write on the Report characteristics to deliver notifications.
func ToBluetoothService(desc ServiceDesc, handles map[CharRef]*bluetooth.Characteristic,
	onWrite func(ref CharRef, offset int, value []byte), initialValues map[CharRef][]byte) *bluetooth.Service {

	configs := make([]bluetooth.CharacteristicConfig, 0, len(desc.Characteristics))
	for _, c := range desc.Characteristics {
		ref := c.Ref
		cfg := bluetooth.CharacteristicConfig{
			UUID:  uuid16(c.UUID),
			Value: initialValues[ref],
		}
		cfg.Flags = bluetooth.CharacteristicReadPermission
		if c.Writable {
			cfg.Flags |= bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission
			cfg.WriteEvent = func(client bluetooth.Connection, offset int, value []byte) {
				buf := make([]byte, len(value))
				copy(buf, value)
				onWrite(ref, offset, buf)
			}
		}
		if c.Notifiable {
			cfg.Flags |= bluetooth.CharacteristicNotifyPermission
		}
		handle := new(bluetooth.Characteristic)
		cfg.Handle = handle
		handles[ref] = handle
		configs = append(configs, cfg)
	}

	return &bluetooth.Service{
		UUID:            uuid16(desc.UUID),
		Characteristics: configs,
	}
}
