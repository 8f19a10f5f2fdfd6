package recorder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

const (
	captureVersion      uint16 = 1
	captureHeaderSize          = 28
	captureChecksumSize        = 4
)

var (
	captureMagic = [4]byte{'C', 'A', 'P', '1'}
	crcTable     = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic             = errors.New("capture invalid magic")
	ErrUnsupportedCaptureVer    = errors.New("capture unsupported version")
	ErrInvalidCaptureHeaderSize = errors.New("capture invalid header size")
)

// FrameHeader describes one captured wire frame.
type FrameHeader struct {
	Seq    uint64
	TsRecv int64
}

func encodeHeader(dst []byte, header FrameHeader, payloadLen int) {
	_ = dst[captureHeaderSize-1]
	copy(dst[0:4], captureMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], captureVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(captureHeaderSize))
	binary.LittleEndian.PutUint32(dst[8:12], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[12:20], header.Seq)
	binary.LittleEndian.PutUint64(dst[20:28], uint64(header.TsRecv))
}

func checksum(header []byte, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}

func decodeFrameHeader(src []byte) (FrameHeader, uint32, error) {
	if len(src) < captureHeaderSize {
		return FrameHeader{}, 0, ErrInvalidCaptureHeaderSize
	}
	if !bytes.Equal(src[0:4], captureMagic[:]) {
		return FrameHeader{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != captureVersion {
		return FrameHeader{}, 0, ErrUnsupportedCaptureVer
	}
	if headerSize := binary.LittleEndian.Uint16(src[6:8]); headerSize != captureHeaderSize {
		return FrameHeader{}, 0, ErrInvalidCaptureHeaderSize
	}
	payloadLen := binary.LittleEndian.Uint32(src[8:12])
	h := FrameHeader{
		Seq:    binary.LittleEndian.Uint64(src[12:20]),
		TsRecv: int64(binary.LittleEndian.Uint64(src[20:28])),
	}
	return h, payloadLen, nil
}
