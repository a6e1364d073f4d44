// Package audio inspects WAV input so obviously silent clips can skip the
// recognition pass entirely.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

// Levels summarizes the signal energy of a WAV payload.
type Levels struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// IsSilentWAV reports whether the file's audio stays below thresholdDBFS.
// The peak gate sits 6 dB above the RMS threshold so a short transient does
// not mark an otherwise silent clip as speech.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, Levels, error) {
	levels, err := AnalyzeWAV(path)
	if err != nil {
		return false, Levels{}, err
	}

	if levels.Samples == 0 {
		return true, levels, nil
	}

	if math.IsInf(levels.RMSdBFS, -1) && math.IsInf(levels.PeakdBFS, -1) {
		return true, levels, nil
	}

	peakGate := thresholdDBFS + 6
	return levels.RMSdBFS <= thresholdDBFS && levels.PeakdBFS <= peakGate, levels, nil
}

// AnalyzeWAV computes RMS and peak levels over every sample in the file.
func AnalyzeWAV(path string) (Levels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Levels{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	format, data, err := readWAV(f)
	if err != nil {
		return Levels{}, err
	}

	bytesPerSample := int(format.bitsPerSample / 8)
	if bytesPerSample <= 0 {
		return Levels{}, ErrUnsupportedWAV
	}

	var peak, sumSquares float64
	var samples int64
	for i := 0; i+bytesPerSample <= len(data); i += bytesPerSample {
		value, err := decodeSample(data[i:i+bytesPerSample], format)
		if err != nil {
			return Levels{}, err
		}

		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return Levels{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	rms := math.Sqrt(sumSquares / float64(samples))
	return Levels{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

type wavFormat struct {
	audioFormat   uint16
	bitsPerSample uint16
}

func readWAV(f *os.File) (wavFormat, []byte, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return wavFormat{}, nil, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return wavFormat{}, nil, fmt.Errorf("read wav header: %w", err)
	}

	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return wavFormat{}, nil, ErrInvalidWAV
	}

	var (
		format     wavFormat
		dataOffset int64
		dataSize   uint32
		hasFmt     bool
		hasData    bool
	)

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return wavFormat{}, nil, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		chunkStart, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return wavFormat{}, nil, fmt.Errorf("seek wav chunk start: %w", err)
		}

		// RIFF chunks are padded to even sizes.
		skip := int64(chunkSize)
		if chunkSize%2 != 0 {
			skip++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return wavFormat{}, nil, ErrInvalidWAV
			}

			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, buf); err != nil {
				return wavFormat{}, nil, fmt.Errorf("read wav fmt chunk: %w", err)
			}

			format.audioFormat = binary.LittleEndian.Uint16(buf[0:2])
			format.bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true

			if chunkSize%2 != 0 {
				if _, err := f.Seek(1, io.SeekCurrent); err != nil {
					return wavFormat{}, nil, fmt.Errorf("seek wav fmt padding: %w", err)
				}
			}
		case "data":
			dataOffset = chunkStart
			dataSize = chunkSize
			hasData = true
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return wavFormat{}, nil, fmt.Errorf("seek wav data chunk: %w", err)
			}
		default:
			if _, err := f.Seek(skip, io.SeekCurrent); err != nil {
				return wavFormat{}, nil, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return wavFormat{}, nil, ErrInvalidWAV
	}

	if err := validateFormat(format); err != nil {
		return wavFormat{}, nil, err
	}

	if _, err := f.Seek(dataOffset, io.SeekStart); err != nil {
		return wavFormat{}, nil, fmt.Errorf("seek wav data offset: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(f, data); err != nil {
		return wavFormat{}, nil, fmt.Errorf("read wav data: %w", err)
	}

	return format, data, nil
}

func validateFormat(format wavFormat) error {
	switch format.audioFormat {
	case 1: // PCM
		switch format.bitsPerSample {
		case 8, 16, 24, 32:
			return nil
		}
	case 3: // IEEE float
		switch format.bitsPerSample {
		case 32, 64:
			return nil
		}
	}
	return ErrUnsupportedWAV
}

func decodeSample(sample []byte, format wavFormat) (float64, error) {
	if format.audioFormat == 3 {
		switch format.bitsPerSample {
		case 32:
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(sample))), nil
		case 64:
			return math.Float64frombits(binary.LittleEndian.Uint64(sample)), nil
		default:
			return 0, ErrUnsupportedWAV
		}
	}

	switch format.bitsPerSample {
	case 8:
		return (float64(sample[0]) - 128.0) / 128.0, nil
	case 16:
		return float64(int16(binary.LittleEndian.Uint16(sample))) / 32768.0, nil
	case 24:
		v := int32(sample[0]) | int32(sample[1])<<8 | int32(sample[2])<<16
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608.0, nil
	case 32:
		return float64(int32(binary.LittleEndian.Uint32(sample))) / 2147483648.0, nil
	default:
		return 0, ErrUnsupportedWAV
	}
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
