package protocol

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// DecodeClientMessage parses one framed client → server message. Frames
// with unknown tags, short payloads or malformed strings are rejected; the
// session drops them and carries on.
func DecodeClientMessage(buf []byte) (ClientMsg, error) {
	if len(buf) == 0 {
		return nil, ErrEmpty
	}
	switch buf[0] {
	case MsgHello:
		return decodeHello(buf)
	case MsgJoinRoom:
		return decodeJoinRoom(buf)
	case MsgInput:
		return decodeInput(buf)
	case MsgPing:
		return decodePing(buf)
	default:
		return nil, &UnknownTypeError{Tag: buf[0]}
	}
}

func decodeHello(buf []byte) (ClientMsg, error) {
	if len(buf) < 2 {
		return nil, ErrOutOfBounds
	}
	nameLen := int(buf[1])
	if nameLen > MaxUsernameLen || len(buf) < 2+nameLen {
		return nil, ErrOutOfBounds
	}
	name, err := readString(buf, 2, nameLen)
	if err != nil {
		return nil, err
	}
	return Hello{Username: name}, nil
}

func decodeJoinRoom(buf []byte) (ClientMsg, error) {
	if len(buf) < 3 {
		return nil, ErrOutOfBounds
	}
	roomLen := int(buf[1])
	mapLen := int(buf[2])
	if len(buf) < 3+roomLen+mapLen {
		return nil, ErrOutOfBounds
	}

	offset := 3
	var msg JoinRoom
	if roomLen > 0 {
		room, err := readString(buf, offset, roomLen)
		if err != nil {
			return nil, err
		}
		msg.RoomID = room
		offset += roomLen
	}
	if mapLen > 0 {
		name, err := readString(buf, offset, mapLen)
		if err != nil {
			return nil, err
		}
		msg.MapName = name
	}
	return msg, nil
}

func decodeInput(buf []byte) (ClientMsg, error) {
	if len(buf) < 16 {
		return nil, ErrOutOfBounds
	}
	flags := buf[13]
	return Input{
		Seq:          binary.LittleEndian.Uint64(buf[1:9]),
		AimAngle:     math.Float32frombits(binary.LittleEndian.Uint32(buf[9:13])),
		KeyUp:        flags&InputFlagUp != 0,
		KeyDown:      flags&InputFlagDown != 0,
		KeyLeft:      flags&InputFlagLeft != 0,
		KeyRight:     flags&InputFlagRight != 0,
		MouseDown:    flags&InputFlagMouseDown != 0,
		FacingLeft:   flags&InputFlagFacingLeft != 0,
		WeaponSwitch: int8(buf[14]),
		WeaponScroll: int8(buf[15]),
	}, nil
}

func decodePing(buf []byte) (ClientMsg, error) {
	if len(buf) < 9 {
		return nil, ErrOutOfBounds
	}
	return Ping{ClientTimeMs: binary.LittleEndian.Uint64(buf[1:9])}, nil
}

func readString(buf []byte, offset, length int) (string, error) {
	raw := buf[offset : offset+length]
	if !utf8.Valid(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}
