// Package audiotest writes and inspects small PCM WAV fixtures for tests.
package audiotest

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	pcmFormat = 1
	bitDepth  = 16
)

// Tone describes a generated fixture. A zero Frequency produces silence.
type Tone struct {
	SampleRate int
	Channels   int
	Duration   time.Duration
	Frequency  float64
}

func (tone Tone) withDefaults() Tone {
	if tone.SampleRate <= 0 {
		tone.SampleRate = 8000
	}
	if tone.Channels <= 0 {
		tone.Channels = 1
	}
	if tone.Duration <= 0 {
		tone.Duration = time.Second
	}
	return tone
}

// WriteWAV writes tone as 16-bit PCM to path, creating parent directories.
func WriteWAV(tb testing.TB, path string, tone Tone) string {
	tb.Helper()
	tone = tone.withDefaults()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("create fixture dir: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create fixture: %v", err)
	}
	defer file.Close()

	frames := int(tone.Duration.Seconds() * float64(tone.SampleRate))
	data := make([]int, frames*tone.Channels)
	if tone.Frequency > 0 {
		for i := range frames {
			v := int(math.Sin(2*math.Pi*tone.Frequency*float64(i)/float64(tone.SampleRate)) * 0.5 * math.MaxInt16)
			for ch := range tone.Channels {
				data[i*tone.Channels+ch] = v
			}
		}
	}

	enc := wav.NewEncoder(file, tone.SampleRate, bitDepth, tone.Channels, pcmFormat)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: tone.Channels, SampleRate: tone.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("finalize fixture: %v", err)
	}
	return path
}

// Silence writes one second of mono silence named name under dir.
func Silence(tb testing.TB, dir, name string) string {
	tb.Helper()
	return WriteWAV(tb, filepath.Join(dir, name), Tone{})
}

// Info is what the WAV header of a fixture reports.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// ReadInfo decodes the header of the WAV file at path.
func ReadInfo(tb testing.TB, path string) Info {
	tb.Helper()
	file, err := os.Open(path)
	if err != nil {
		tb.Fatalf("open wav: %v", err)
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		tb.Fatalf("%s is not a valid wav file", path)
	}
	duration, err := dec.Duration()
	if err != nil {
		tb.Fatalf("wav duration: %v", err)
	}
	return Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   duration,
	}
}
