// Package emu emulates TMC2209 devices sharing one single-wire UART.
//
// A Bus is the wire seen from the host: everything written to it is echoed
// back, and each device answers the valid read requests addressed to it.
// Corrupted datagrams are ignored like the hardware does, so the host sees
// a timeout. Faults can be injected to exercise the error paths of a driver.
package emu
