package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_PERIOD_MS    = 250 // Output cadence in milliseconds (4 Hz)
	DEFAULT_NUM_SAMPLES = 8   // Default capacitive reads averaged per output
	MAX_NUM_SAMPLES     = 64  // Upper bound accepted from the A<n> command

	// Capacitive timing
	// The raw reading is the number of polling iterations until the sense
	// pin crosses the digital threshold after the charge pin goes high.
	// More fluid between the plates = more capacitance = longer charge time.
	CHARGE_TIMEOUT_COUNTS = 30000 // Past this the probe is considered disconnected
	DISCHARGE_SETTLE_US   = 500   // Settle time after draining the sense plate

	// Fault sentinel emitted when a read times out
	FAULT_SENTINEL = -1

	// Pins
	PIN_CHARGE = machine.D7 // Drives the send plate
	PIN_SENSE  = machine.D8 // Reads the receive plate

	// Serial configuration
	// Format "unix_micros,raw\n", example "1234567890123456,9230\n" = ~25
	// bytes max per line. 4 lines/sec * 25 bytes = 100 bytes/sec; UART 8N1
	// at 9600 baud moves 960 bytes/sec, ample headroom.
	UART_BAUD_RATE = 9600
)
