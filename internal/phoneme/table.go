// Package phoneme holds the static phoneme definitions shared by the parser
// and the renderer, and the triple sequence they exchange.
package phoneme

// Flag describes articulation properties of a phoneme.
type Flag uint16

const (
	FlagPlosive   Flag = 0x0001 // unvoiced stop: P, T, K, KX
	FlagStopCons  Flag = 0x0002
	FlagVoiced    Flag = 0x0004
	FlagClosure   Flag = 0x0008 // nasals, DX, Q, CH, J and the stops
	FlagDiphthong Flag = 0x0010
	FlagDipYX     Flag = 0x0020 // diphthong gliding into YX
	FlagConsonant Flag = 0x0040
	FlagVowel     Flag = 0x0080
	FlagPunct     Flag = 0x0100
	FlagAlveolar  Flag = 0x0400
	FlagNasal     Flag = 0x0800
	FlagLiquid    Flag = 0x1000
	FlagFricative Flag = 0x2000
	FlagHalt      Flag = 0x4000 // punctuation and glottal stop
	FlagSilent    Flag = 0x8000
)

// Count is the number of defined phonemes.
const Count = 81

// Reserved and frequently referenced indices.
const (
	Pause    uint8 = 0
	Period   uint8 = 1
	Question uint8 = 2
	Comma    uint8 = 3
	Dash     uint8 = 4
	AX       uint8 = 13
	UX       uint8 = 16
	RX       uint8 = 18
	LX       uint8 = 19
	WX       uint8 = 20
	YX       uint8 = 21
	R        uint8 = 23
	L        uint8 = 24
	M        uint8 = 27
	N        uint8 = 28
	DX       uint8 = 30
	Q        uint8 = 31
	S        uint8 = 32
	HH       uint8 = 36 // /H
	HX       uint8 = 37 // /X
	Z        uint8 = 38
	CH       uint8 = 42
	J        uint8 = 44
	UW       uint8 = 53
	D        uint8 = 57
	G        uint8 = 60
	GX       uint8 = 63
	T        uint8 = 69
	K        uint8 = 72
	KX       uint8 = 75
	UL       uint8 = 78
	UM       uint8 = 79
	UN       uint8 = 80

	// Break splits a sequence into separately rendered chunks.
	Break uint8 = 254
	// End terminates a sequence.
	End uint8 = 255
)

// Definition is one row of the phoneme table.
type Definition struct {
	Name     string
	Flags    Flag
	Length   uint8 // unstressed duration in frames
	Stressed uint8 // duration in frames when stress is set
}

var table = [Count]Definition{
	{" *", 0x8000, 0x00, 0x00},
	{".*", 0xC100, 0x12, 0x12},
	{"?*", 0xC100, 0x12, 0x12},
	{",*", 0xC100, 0x12, 0x12},
	{"-*", 0xC100, 0x08, 0x08},
	{"IY", 0x00A4, 0x08, 0x0B},
	{"IH", 0x00A4, 0x08, 0x09},
	{"EH", 0x00A4, 0x08, 0x0B},
	{"AE", 0x00A4, 0x08, 0x0E},
	{"AA", 0x00A4, 0x0B, 0x0F},
	{"AH", 0x00A4, 0x06, 0x0B},
	{"AO", 0x0084, 0x0C, 0x10},
	{"UH", 0x0084, 0x0A, 0x0C},
	{"AX", 0x00A4, 0x05, 0x06},
	{"IX", 0x00A4, 0x05, 0x06},
	{"ER", 0x0084, 0x0B, 0x0E},
	{"UX", 0x0084, 0x0A, 0x0C},
	{"OH", 0x0084, 0x0A, 0x0E},
	{"RX", 0x0084, 0x0A, 0x0C},
	{"LX", 0x0084, 0x09, 0x0B},
	{"WX", 0x0084, 0x08, 0x08},
	{"YX", 0x0084, 0x07, 0x08},
	{"WH", 0x0044, 0x09, 0x0B},
	{"R*", 0x1044, 0x07, 0x0A},
	{"L*", 0x1044, 0x06, 0x09},
	{"W*", 0x1044, 0x08, 0x08},
	{"Y*", 0x1044, 0x06, 0x08},
	{"M*", 0x084C, 0x07, 0x08},
	{"N*", 0x0C4C, 0x07, 0x08},
	{"NX", 0x084C, 0x07, 0x08},
	{"DX", 0x0448, 0x02, 0x03},
	{"Q*", 0x404C, 0x05, 0x05},
	{"S*", 0x2440, 0x02, 0x02},
	{"SH", 0x2040, 0x02, 0x02},
	{"F*", 0x2040, 0x02, 0x02},
	{"TH", 0x2440, 0x02, 0x02},
	{"/H", 0x0040, 0x02, 0x02},
	{"/X", 0x0040, 0x02, 0x02},
	{"Z*", 0x2444, 0x06, 0x06},
	{"ZH", 0x2044, 0x06, 0x06},
	{"V*", 0x2044, 0x07, 0x08},
	{"DH", 0x2444, 0x06, 0x06},
	{"CH", 0x2048, 0x06, 0x06},
	{"**", 0x2040, 0x02, 0x02},
	{"J*", 0x004C, 0x08, 0x09},
	{"**", 0x2044, 0x03, 0x04},
	{"**", 0x0000, 0x01, 0x02},
	{"**", 0x0000, 0x1E, 0x01},
	{"EY", 0x00B4, 0x0D, 0x0E},
	{"AY", 0x00B4, 0x0C, 0x0F},
	{"OY", 0x00B4, 0x0C, 0x0F},
	{"AW", 0x0094, 0x0C, 0x0F},
	{"OW", 0x0094, 0x0E, 0x0E},
	{"UW", 0x0094, 0x09, 0x0E},
	{"B*", 0x004E, 0x06, 0x08},
	{"**", 0x004E, 0x01, 0x02},
	{"**", 0x004E, 0x02, 0x02},
	{"D*", 0x044E, 0x05, 0x07},
	{"**", 0x044E, 0x01, 0x02},
	{"**", 0x044E, 0x01, 0x01},
	{"G*", 0x004E, 0x06, 0x07},
	{"**", 0x004E, 0x01, 0x02},
	{"**", 0x004E, 0x02, 0x02},
	{"GX", 0x004E, 0x06, 0x07},
	{"**", 0x004E, 0x01, 0x02},
	{"**", 0x004E, 0x02, 0x02},
	{"P*", 0x004B, 0x08, 0x08},
	{"**", 0x004B, 0x02, 0x02},
	{"**", 0x004B, 0x02, 0x02},
	{"T*", 0x044B, 0x04, 0x06},
	{"**", 0x044B, 0x02, 0x02},
	{"**", 0x044B, 0x02, 0x02},
	{"K*", 0x004B, 0x06, 0x07},
	{"**", 0x004B, 0x01, 0x02},
	{"**", 0x004B, 0x04, 0x04},
	{"KX", 0x004B, 0x06, 0x07},
	{"**", 0x004B, 0x01, 0x01},
	{"**", 0x004B, 0x04, 0x04},
	{"UL", 0x0080, 0xC7, 0x05},
	{"UM", 0x00C1, 0xFF, 0x05},
	{"UN", 0x00C1, 0xFF, 0x05},
}

// Lookup returns the definition for index. ok is false for indices outside
// the table, including Break and End.
func Lookup(index int) (Definition, bool) {
	if index < 0 || index >= Count {
		return Definition{}, false
	}
	return table[index], true
}

// Flags returns the flag word for index, or zero for indices outside the table.
func Flags(index int) Flag {
	if index < 0 || index >= Count {
		return 0
	}
	return table[index].Flags
}

// Has reports whether the phoneme at index carries every bit of f.
func Has(index int, f Flag) bool {
	return Flags(index)&f == f
}

// Name returns the printable name of index, trimming the wildcard marker.
func Name(index uint8) string {
	switch index {
	case Break:
		return "|"
	case End:
		return "$"
	}
	def, ok := Lookup(int(index))
	if !ok {
		return "?"
	}
	if def.Name[1] == '*' {
		return def.Name[:1]
	}
	return def.Name
}
