// Package wav reads and writes the mono 16-bit PCM WAV files Capstan accepts
// as canonical audio. Decoding keeps the sample payload on disk and exposes
// ranged reads so segment slicing never loads more audio than a single
// recognizer call needs.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const headerSize = 44

// Audio is a validated handle to a canonical audio file.
type Audio struct {
	Path          string
	SampleRate    int
	Channels      int
	BitsPerSample int

	sampleCount int
	dataOffset  int64
	dataSize    int64
}

// Open parses the WAV header at path and validates that the payload is the
// mono 16-bit PCM Capstan's contract requires.
func Open(path string) (*Audio, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	audio, err := parseHeader(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	audio.Path = path
	return audio, nil
}

func parseHeader(r io.ReadSeeker) (*Audio, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	audio := &Audio{}
	var haveFmt, haveData bool
	offset := int64(12)

	for !haveData {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errors.New("missing data chunk")
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			var format [16]byte
			if _, err := io.ReadFull(r, format[:]); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(format[0:2])
			if audioFormat != 1 {
				return nil, fmt.Errorf("unsupported audio format %d (want PCM)", audioFormat)
			}
			audio.Channels = int(binary.LittleEndian.Uint16(format[2:4]))
			audio.SampleRate = int(binary.LittleEndian.Uint32(format[4:8]))
			audio.BitsPerSample = int(binary.LittleEndian.Uint16(format[14:16]))
			haveFmt = true
			if rest := size - 16; rest > 0 {
				if _, err := r.Seek(rest+rest%2, io.SeekCurrent); err != nil {
					return nil, fmt.Errorf("skip fmt extension: %w", err)
				}
				offset += rest + rest%2
			}
			offset += 16
		case "data":
			audio.dataOffset = offset
			audio.dataSize = size
			haveData = true
		default:
			// LIST, fact, and friends carry no samples.
			skip := size + size%2
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("skip %s chunk: %w", id, err)
			}
			offset += skip
		}
	}

	if !haveFmt {
		return nil, errors.New("missing fmt chunk")
	}
	if audio.Channels != 1 {
		return nil, fmt.Errorf("unsupported channel count %d (want mono)", audio.Channels)
	}
	if audio.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth %d (want 16)", audio.BitsPerSample)
	}
	if audio.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", audio.SampleRate)
	}
	audio.sampleCount = int(audio.dataSize / 2)
	if audio.sampleCount == 0 {
		return nil, errors.New("empty data chunk")
	}
	return audio, nil
}

// Duration reports the audio length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.sampleCount) / float64(a.SampleRate)
}

// SampleCount reports the number of PCM samples in the data chunk.
func (a *Audio) SampleCount() int {
	return a.sampleCount
}

// ReadSamples loads the full PCM payload.
func (a *Audio) ReadSamples() ([]int16, error) {
	return a.ReadRange(0, a.Duration())
}

// ReadRange loads the samples covering [start, end) seconds, clipped to the
// audio bounds. An inverted or out-of-range window yields an empty slice.
func (a *Audio) ReadRange(start, end float64) ([]int16, error) {
	startIdx := int(math.Floor(start * float64(a.SampleRate)))
	endIdx := int(math.Ceil(end * float64(a.SampleRate)))
	if startIdx < 0 {
		startIdx = 0
	}
	if endIdx > a.sampleCount {
		endIdx = a.sampleCount
	}
	if endIdx <= startIdx {
		return nil, nil
	}

	file, err := os.Open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	count := endIdx - startIdx
	raw := make([]byte, count*2)
	n, err := file.ReadAt(raw, a.dataOffset+int64(startIdx)*2)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(raw)) {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	samples := make([]int16, count)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return samples, nil
}

// Encode writes samples as a mono 16-bit PCM WAV stream.
func Encode(w io.Writer, samples []int16, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	dataSize := len(samples) * 2
	byteRate := sampleRate * 2

	header := make([]byte, headerSize)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataSize))
	copy(header[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1)
	binary.LittleEndian.PutUint16(header[22:], 1)
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return err
	}

	payload := make([]byte, dataSize)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(sample))
	}
	_, err := w.Write(payload)
	return err
}

// EncodeBytes renders samples as an in-memory WAV file, sized for one
// recognizer upload.
func EncodeBytes(samples []int16, sampleRate int) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + len(samples)*2)
	if err := Encode(&buf, samples, sampleRate); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes samples to path as a mono 16-bit PCM WAV file.
func WriteFile(path string, samples []int16, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := Encode(file, samples, sampleRate); err != nil {
		return err
	}
	return file.Close()
}
