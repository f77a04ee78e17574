//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	uart = machine.UART0

	// Capacitive reads averaged per output line, adjustable via "A<n>\n"
	numSamples = DEFAULT_NUM_SAMPLES

	// Timing
	lastOutput time.Time

	// Serial buffer for reading commands
	serialBuffer [16]byte
	serialPos    int
)

func main() {
	// Charge pin drives the send plate, sense pin reads the receive plate
	PIN_CHARGE.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_SENSE.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_CHARGE.Low()

	// Configure UART for raw output and the averaging command
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastOutput = time.Now()

	// Main loop
	for {
		now := time.Now()

		// Check for serial input (non-blocking)
		processSerial()

		// Output one averaged reading every sample period (4 Hz)
		if now.Sub(lastOutput) >= time.Duration(SAMPLE_PERIOD_MS)*time.Millisecond {
			outputReading()
			lastOutput = now
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

// measureOnce performs a single capacitive timing read. Returns the number
// of polling iterations until the sense plate crosses the digital threshold,
// or FAULT_SENTINEL when the probe never charges (disconnected or shorted).
func measureOnce() int32 {
	// Drain the sense plate so every read starts from the same state
	PIN_CHARGE.Low()
	time.Sleep(DISCHARGE_SETTLE_US * time.Microsecond)

	PIN_CHARGE.High()

	var count int32
	for !PIN_SENSE.Get() {
		count++
		if count >= CHARGE_TIMEOUT_COUNTS {
			PIN_CHARGE.Low()
			return FAULT_SENTINEL
		}
	}

	PIN_CHARGE.Low()
	return count
}

// outputReading averages numSamples capacitive reads and writes one line.
// A single timed-out read faults the whole reading; averaging a sentinel
// into good reads would just produce a subtler lie.
func outputReading() {
	var sum int32
	for i := 0; i < numSamples; i++ {
		v := measureOnce()
		if v == FAULT_SENTINEL {
			outputLine(FAULT_SENTINEL)
			return
		}
		sum += v
	}

	outputLine(sum / int32(numSamples))
}

// outputLine writes "unix_micros,raw\n".
func outputLine(raw int32) {
	timestampMicros := time.Now().UnixNano() / 1000
	print(timestampMicros)
	print(",")
	print(raw)
	print("\n")
}

func processSerial() {
	// Read available bytes from serial
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of line)
		if data == '\n' || data == '\r' {
			if serialPos > 1 && serialBuffer[0] == 'A' {
				updateSampleCount()
			}
			// Reset buffer regardless of content
			serialPos = 0
			continue
		}

		// Ignore whitespace
		if data == ' ' || data == '\t' {
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
		// Buffer full: ignore additional bytes until newline
	}
}

// updateSampleCount parses the digits after 'A' and applies the new
// averaging count, clamped to [1, MAX_NUM_SAMPLES].
func updateSampleCount() {
	n := 0
	for i := 1; i < serialPos; i++ {
		c := serialBuffer[i]
		if c < '0' || c > '9' {
			// Invalid command - keep the current count
			return
		}
		n = n*10 + int(c-'0')
		if n > MAX_NUM_SAMPLES {
			n = MAX_NUM_SAMPLES
			break
		}
	}

	if n < 1 {
		n = 1
	}
	numSamples = n
}
