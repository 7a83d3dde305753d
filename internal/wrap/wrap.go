// Package wrap provides fixed-width unsigned integers whose arithmetic
// wraps like the 8-bit and 16-bit registers of the original speech engine.
//
// Go's sized integer types already wrap on overflow; these types exist so
// that register-width arithmetic is visible at the call site and so that
// mixing with plain ints always goes through an explicit mask.
package wrap

// Uint8 is an 8-bit register. Inc past 0xFF yields 0, Dec below 0 yields 0xFF.
type Uint8 uint8

// NewUint8 returns v masked to 8 bits.
func NewUint8(v int) Uint8 { return Uint8(v & 0xFF) }

// Get returns the current value.
func (u Uint8) Get() uint8 { return uint8(u) }

// Int returns the value as a plain int.
func (u Uint8) Int() int { return int(u) }

// Set stores v masked to 8 bits.
func (u *Uint8) Set(v int) { *u = Uint8(v & 0xFF) }

// Inc adds one.
func (u *Uint8) Inc() { *u++ }

// Dec subtracts one.
func (u *Uint8) Dec() { *u-- }

// Add adds n modulo 256.
func (u *Uint8) Add(n int) { *u = Uint8((int(*u) + n) & 0xFF) }

// Sub subtracts n modulo 256.
func (u *Uint8) Sub(n int) { *u = Uint8((int(*u) - n) & 0xFF) }

// Plus combines the register with a plain number without wrapping the result.
func (u Uint8) Plus(n int) int { return int(u) + n }

// Uint16 is a 16-bit register. Inc past 0xFFFF yields 0, Dec below 0 yields 0xFFFF.
type Uint16 uint16

// NewUint16 returns v masked to 16 bits.
func NewUint16(v int) Uint16 { return Uint16(v & 0xFFFF) }

func (u Uint16) Get() uint16 { return uint16(u) }

func (u Uint16) Int() int { return int(u) }

func (u *Uint16) Set(v int) { *u = Uint16(v & 0xFFFF) }

func (u *Uint16) Inc() { *u++ }

func (u *Uint16) Dec() { *u-- }

func (u *Uint16) Add(n int) { *u = Uint16((int(*u) + n) & 0xFFFF) }

func (u *Uint16) Sub(n int) { *u = Uint16((int(*u) - n) & 0xFFFF) }

func (u Uint16) Plus(n int) int { return int(u) + n }
