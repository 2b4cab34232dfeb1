package main

import (
	"context"
	"fmt"
	"time"

	"github.com/leandrodaf/midibridge/internal/logger"
	"github.com/leandrodaf/midibridge/sdk/contracts"
	"github.com/leandrodaf/midibridge/sdk/midi"
)

func main() {
	log := logger.NewDevelopmentLogger()

	devices, err := midi.ListPorts(contracts.WithLogger(log))
	if err != nil {
		log.Warn("No MIDI output ports; falling back to the log backend", log.Field().Error("error", err))
	}
	fmt.Println("Available MIDI outputs:", devices)

	backend := contracts.NullBackend
	if len(devices) > 0 {
		backend = contracts.PortBackend
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dispatcher, err := midi.Open(ctx,
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithBackend(backend),
		contracts.WithAutoreset(),
	)
	if err != nil {
		log.Error("Failed to open MIDI backend", log.Field().Error("error", err))
		return
	}
	defer dispatcher.Close()

	// A C major arpeggio, one note every 250ms.
	start := time.Now()
	for _, note := range []int{60, 64, 67, 72} {
		on := contracts.NewMessage(contracts.NoteOn, contracts.WithNote(note), contracts.WithVelocity(100))
		ts := uint64(time.Since(start).Microseconds())
		if err := dispatcher.Send(on, ts); err != nil {
			log.Error("Send failed", log.Field().Error("error", err))
			return
		}
		time.Sleep(250 * time.Millisecond)
		off := contracts.NewMessage(contracts.NoteOff, contracts.WithNote(note))
		_ = dispatcher.Send(off, uint64(time.Since(start).Microseconds()))
	}
}
