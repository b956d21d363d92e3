// Package tmc drives Trinamic stepper-motor ICs over their single-wire UART.
package tmc

// Every register access is a Ticket. A Channel owns one half-duplex bus and
// keeps its tickets in submission order: the head ticket is the one on the
// wire, the rest wait. A transfer is started by the caller when the bus is
// idle, and otherwise by the idle tick that follows the previous completion,
// after the bus had time to settle.
//
// The Peripheral is the UART hardware (or anything emulating it). It reports
// the end of a transfer by invoking the channel's completion entry point from
// its own context, the way an interrupt would. The channel lock plays the role
// of interrupt masking: every queue mutation holds it, and ticket handlers run
// outside of it.
//
// Datagrams on the wire:
//
//	read request  [sync|dev|reg|crc]                              4 bytes
//	data frame    [sync|dev|reg|data3|data2|data1|data0|crc]      8 bytes
