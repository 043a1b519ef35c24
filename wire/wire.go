// This file is part of tascore.
//
// tascore is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// tascore is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with tascore.  If not, see <https://www.gnu.org/licenses/>.

// Package wire implements the fixed-width binary protocol exchanged
// between the harness and its controller: one byte of message code
// followed by a uint32 length-prefixed payload, all little-endian. It
// intentionally does not use a general-purpose RPC framework; the
// protocol is a strict, ordered, half-duplex exchange per frame, not a
// request/response RPC surface.
package wire

// Code identifies a single wire message.
type Code uint8

// Harness -> controller message codes.
const (
	Alert Code = iota + 1
	FrameCountTime
	GameInfo
	FPS
	StartBoundary
	LoadingSucceeded
	EncodeFailed
)

// Controller -> harness message codes.
const (
	UserQuit Code = iota + 64
	Config
	DumpFile
	AllInputs
	Expose
	PreviewInputs
	SaveState
	LoadState
	StopEncode
	EndBoundary
)

// String names a code for logging; unrecognised codes print their numeric
// value.
func (c Code) String() string {
	switch c {
	case Alert:
		return "ALERT"
	case FrameCountTime:
		return "FRAMECOUNT_TIME"
	case GameInfo:
		return "GAMEINFO"
	case FPS:
		return "FPS"
	case StartBoundary:
		return "START_BOUNDARY"
	case LoadingSucceeded:
		return "LOADING_SUCCEEDED"
	case EncodeFailed:
		return "ENCODE_FAILED"
	case UserQuit:
		return "USERQUIT"
	case Config:
		return "CONFIG"
	case DumpFile:
		return "DUMP_FILE"
	case AllInputs:
		return "ALL_INPUTS"
	case Expose:
		return "EXPOSE"
	case PreviewInputs:
		return "PREVIEW_INPUTS"
	case SaveState:
		return "SAVESTATE"
	case LoadState:
		return "LOADSTATE"
	case StopEncode:
		return "STOP_ENCODE"
	case EndBoundary:
		return "END_BOUNDARY"
	default:
		return "UNKNOWN"
	}
}

// FrameCountTimePayload is the payload carried by a FrameCountTime message.
type FrameCountTimePayload struct {
	Framecount uint64
	Sec        int64
	Nsec       int64
}

// FPSPayload is the payload carried by an FPS message.
type FPSPayload struct {
	FPS  float32
	LFPS float32
}

// GameInfoPayload describes the target binary to the controller. It is
// re-sent only when marked dirty; anything tied to a particular renderer
// or console is out of scope here.
type GameInfoPayload struct {
	Width, Height int32
	FlagsOSD      uint32
}

// Inputs is a single frame's worth of controller input. It is opaque to
// this package beyond its wire size: the movie-file format that produces
// it lives outside the core.
type Inputs struct {
	Keyboard   [32]byte // bitset of held keys
	Controller [4]ControllerState
	MouseX     int32
	MouseY     int32
	MouseMask  uint8
}

// ControllerState is one gamepad's worth of axis/button state.
type ControllerState struct {
	Axes    [6]int16
	Buttons uint16
}
