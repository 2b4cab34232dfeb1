package midiwindows

import "github.com/leandrodaf/midibridge/sdk/contracts"

// collectDevices lists devices 0..n-1, leaving out those read cannot describe
// so every entry carries a real name and its own device number.
func collectDevices(n uint32, read func(i uint32) (name, manufacturer string, ok bool)) []contracts.DeviceInfo {
	devices := make([]contracts.DeviceInfo, 0, n)
	for i := uint32(0); i < n; i++ {
		name, manufacturer, ok := read(i)
		if !ok {
			continue
		}
		devices = append(devices, contracts.DeviceInfo{
			Name:         name,
			EntityName:   name,
			Manufacturer: manufacturer,
			Number:       int(i),
		})
	}
	return devices
}
