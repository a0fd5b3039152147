package audio

import (
	"strings"

	"golang.org/x/text/cases"
)

// Format identifies an output container/codec pairing.
type Format int

// Supported formats. The zero value is deliberately invalid.
const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatFLAC
	FormatOGG
	FormatAAC
	FormatOpus
)

// EncoderSpec is the engine argument fragment for one format.
type EncoderSpec struct {
	Name      string
	Codec     []string // encoder flags, e.g. -c:a libmp3lame -q:a 2
	Muxer     string   // value passed to -f
	Extension string   // canonical file extension including the dot
	Aliases   []string
}

var catalog = map[Format]EncoderSpec{
	FormatWAV: {
		Name:      "wav",
		Codec:     []string{"-c:a", "pcm_s16le"},
		Muxer:     "wav",
		Extension: ".wav",
		Aliases:   []string{"wave"},
	},
	FormatMP3: {
		Name:      "mp3",
		Codec:     []string{"-c:a", "libmp3lame", "-q:a", "2"},
		Muxer:     "mp3",
		Extension: ".mp3",
	},
	FormatFLAC: {
		Name:      "flac",
		Codec:     []string{"-c:a", "flac", "-compression_level", "5"},
		Muxer:     "flac",
		Extension: ".flac",
	},
	FormatOGG: {
		Name:      "ogg",
		Codec:     []string{"-c:a", "libvorbis", "-q:a", "5"},
		Muxer:     "ogg",
		Extension: ".ogg",
		Aliases:   []string{"vorbis", "oga"},
	},
	FormatAAC: {
		Name:      "aac",
		Codec:     []string{"-c:a", "aac", "-b:a", "192k"},
		Muxer:     "ipod",
		Extension: ".m4a",
		Aliases:   []string{"m4a"},
	},
	FormatOpus: {
		Name:      "opus",
		Codec:     []string{"-c:a", "libopus", "-b:a", "128k"},
		Muxer:     "opus",
		Extension: ".opus",
	},
}

var formatOrder = []Format{FormatWAV, FormatMP3, FormatFLAC, FormatOGG, FormatAAC, FormatOpus}

var folder = cases.Fold()

// Lookup returns the encoder spec for a format. Missing entries are a
// programming error surfaced as ErrInvalidParameter.
func Lookup(f Format) (EncoderSpec, error) {
	spec, ok := catalog[f]
	if !ok {
		return EncoderSpec{}, invalidf("format lookup", "unknown format %d", int(f))
	}
	spec.Codec = append([]string(nil), spec.Codec...)
	return spec, nil
}

// Formats lists every catalogued format in a stable order.
func Formats() []Format {
	return append([]Format(nil), formatOrder...)
}

// ParseFormat resolves a user supplied identifier or extension such as
// "MP3", ".flac" or "m4a".
func ParseFormat(name string) (Format, error) {
	key := folder.String(strings.TrimPrefix(strings.TrimSpace(name), "."))
	if key == "" {
		return FormatUnknown, invalidf("parse format", "empty format name")
	}
	for _, f := range formatOrder {
		spec := catalog[f]
		if key == spec.Name || key == strings.TrimPrefix(spec.Extension, ".") {
			return f, nil
		}
		for _, alias := range spec.Aliases {
			if key == alias {
				return f, nil
			}
		}
	}
	return FormatUnknown, invalidf("parse format", "unknown format %q", name)
}

func (f Format) String() string {
	if spec, ok := catalog[f]; ok {
		return spec.Name
	}
	return "unknown"
}
