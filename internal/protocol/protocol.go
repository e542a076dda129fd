package protocol

import (
	"encoding/binary"

	"github.com/samber/lo"
)

const VendorID uint16 = 0x046d
const ProductID uint16 = 0xc900

const MinBrightness = 0x14
const MaxBrightness = 0xfa
const MinTemperature = 2700
const MaxTemperature = 6500
const TemperatureStep = 100

// every output report is this long; the first opcode byte doubles as the
// HID report ID
const ReportLength = 20

const (
	opSetPower       uint32 = 0x11FF041C
	opSetBrightness  uint32 = 0x11FF044C
	opSetTemperature uint32 = 0x11FF049C

	opGetPower       uint32 = 0x11FF0401
	opGetBrightness  uint32 = 0x11FF0431
	opGetTemperature uint32 = 0x11FF0481
)

type CommandKind int

const (
	CmdSetPower CommandKind = iota
	CmdSetBrightness
	CmdSetTemperature
	CmdGetPower
	CmdGetBrightness
	CmdGetTemperature
)

// Command is a single output report to the lamp.
type Command struct {
	Kind  CommandKind
	Value uint16
}

func SetPower(on bool) Command {
	var v uint16
	if on {
		v = 1
	}
	return Command{Kind: CmdSetPower, Value: v}
}

func SetBrightness(raw uint16) Command {
	return Command{Kind: CmdSetBrightness, Value: raw}
}

func SetTemperature(kelvin uint16) Command {
	return Command{Kind: CmdSetTemperature, Value: kelvin}
}

func GetPower() Command       { return Command{Kind: CmdGetPower} }
func GetBrightness() Command  { return Command{Kind: CmdGetBrightness} }
func GetTemperature() Command { return Command{Kind: CmdGetTemperature} }

// Bytes encodes the command as the 20-byte report the lamp expects:
// big-endian opcode in bytes 0..4, value (if any) following it.
func (c Command) Bytes() []byte {
	buf := make([]byte, ReportLength)
	switch c.Kind {
	case CmdSetPower:
		binary.BigEndian.PutUint32(buf[0:4], opSetPower)
		buf[4] = byte(c.Value)
	case CmdSetBrightness:
		binary.BigEndian.PutUint32(buf[0:4], opSetBrightness)
		binary.BigEndian.PutUint16(buf[4:6], c.Value)
	case CmdSetTemperature:
		binary.BigEndian.PutUint32(buf[0:4], opSetTemperature)
		binary.BigEndian.PutUint16(buf[4:6], c.Value)
	case CmdGetPower:
		binary.BigEndian.PutUint32(buf[0:4], opGetPower)
	case CmdGetBrightness:
		binary.BigEndian.PutUint32(buf[0:4], opGetBrightness)
	case CmdGetTemperature:
		binary.BigEndian.PutUint32(buf[0:4], opGetTemperature)
	}
	return buf
}

func (c Command) String() string {
	switch c.Kind {
	case CmdSetPower:
		return "SetPower"
	case CmdSetBrightness:
		return "SetBrightness"
	case CmdSetTemperature:
		return "SetTemperature"
	case CmdGetPower:
		return "GetPower"
	case CmdGetBrightness:
		return "GetBrightness"
	case CmdGetTemperature:
		return "GetTemperature"
	}
	return "Unknown"
}

type ResponseKind int

const (
	RespPower ResponseKind = iota
	RespBrightness
	RespTemperature
)

// Response is a parsed input report. Hardware is true when the report was
// produced by the lamp's own controls rather than echoed back for a
// software write.
type Response struct {
	Kind     ResponseKind
	On       bool
	Value    uint16
	Hardware bool
}

// ParseResponse decodes an input report; byte 3 discriminates the report
// type and whether it is hardware- or software-initiated.
func ParseResponse(data []byte) (Response, bool) {
	if len(data) < 6 {
		return Response{}, false
	}
	switch data[3] {
	case 0x00:
		return Response{Kind: RespPower, On: data[4] != 0, Hardware: true}, true
	case 0x01:
		return Response{Kind: RespPower, On: data[4] != 0, Hardware: false}, true
	case 0x10:
		return Response{Kind: RespBrightness, Value: uint16(data[5]), Hardware: true}, true
	case 0x31:
		return Response{Kind: RespBrightness, Value: uint16(data[5]), Hardware: false}, true
	case 0x20:
		return Response{Kind: RespTemperature, Value: binary.BigEndian.Uint16(data[4:6]), Hardware: true}, true
	case 0x81:
		return Response{Kind: RespTemperature, Value: binary.BigEndian.Uint16(data[4:6]), Hardware: false}, true
	}
	return Response{}, false
}

// BrightnessFromPercent maps a 0-100 percentage onto the lamp's raw
// brightness range, clamping out-of-range input.
func BrightnessFromPercent(pct int) uint16 {
	pct = lo.Clamp(pct, 0, 100)
	return uint16(MinBrightness + pct*(MaxBrightness-MinBrightness)/100)
}

// BrightnessToPercent maps a raw brightness value back to a percentage.
// Rounded so that it inverts BrightnessFromPercent exactly.
func BrightnessToPercent(raw uint16) int {
	r := lo.Clamp(int(raw), MinBrightness, MaxBrightness)
	span := MaxBrightness - MinBrightness
	return ((r-MinBrightness)*100 + span/2) / span
}

// ClampTemperature clamps a Kelvin value into the supported range and snaps
// it to the lamp's 100K step.
func ClampTemperature(kelvin int) uint16 {
	k := lo.Clamp(kelvin, MinTemperature, MaxTemperature)
	k = (k + TemperatureStep/2) / TemperatureStep * TemperatureStep
	return uint16(lo.Clamp(k, MinTemperature, MaxTemperature))
}
