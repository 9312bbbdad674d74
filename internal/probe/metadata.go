package probe

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stream types used by processors.
const (
	StreamVideo    = "video"
	StreamAudio    = "audio"
	StreamSubtitle = "subtitle"
	StreamFont     = "font"
	StreamData     = "data"
)

// StreamDetail carries the probe fields extraction needs for subtitle and
// font streams.
type StreamDetail struct {
	CodecName string `json:"codec_name"`
	Filename  string `json:"filename,omitempty"`
	MimeType  string `json:"mimetype,omitempty"`
}

// StreamInfo is one stream in container order.
type StreamInfo struct {
	Type  string        `json:"type"`
	Index int           `json:"index"`
	Info  *StreamDetail `json:"info,omitempty"`
}

// Metadata summarizes what a file contains. It is captured once before
// dispatch and treated as read-only for the rest of the run.
type Metadata struct {
	HasVideo     bool         `json:"has_video"`
	HasAudio     bool         `json:"has_audio"`
	HasFonts     bool         `json:"has_fonts"`
	HasSubtitles bool         `json:"has_subtitles"`
	Streams      []StreamInfo `json:"streams"`
}

// FromResult reduces ffprobe output to Metadata. Cover art (attached_pic
// video streams) does not count as video.
func FromResult(result Result) Metadata {
	var meta Metadata
	for _, stream := range result.Streams {
		info := StreamInfo{Index: stream.Index}
		switch strings.ToLower(stream.CodecType) {
		case "video":
			if stream.Disposition["attached_pic"] == 1 {
				info.Type = StreamData
				break
			}
			info.Type = StreamVideo
			meta.HasVideo = true
		case "audio":
			info.Type = StreamAudio
			meta.HasAudio = true
		case "subtitle":
			info.Type = StreamSubtitle
			info.Info = detailFor(stream)
			info.Info.CodecName = SubtitleCodec(stream.CodecName)
			meta.HasSubtitles = true
		case "attachment":
			if isFont(stream) {
				info.Type = StreamFont
				info.Info = detailFor(stream)
				meta.HasFonts = true
			} else {
				info.Type = StreamData
			}
		default:
			info.Type = StreamData
		}
		meta.Streams = append(meta.Streams, info)
	}
	return meta
}

// Clone returns a deep copy.
func (m Metadata) Clone() Metadata {
	clone := m
	if len(m.Streams) > 0 {
		clone.Streams = make([]StreamInfo, len(m.Streams))
		for i, stream := range m.Streams {
			clone.Streams[i] = stream
			if stream.Info != nil {
				detail := *stream.Info
				clone.Streams[i].Info = &detail
			}
		}
	}
	return clone
}

// Fonts returns the font streams in container order.
func (m Metadata) Fonts() []StreamInfo {
	return m.ofType(StreamFont)
}

// Subtitles returns the subtitle streams in container order.
func (m Metadata) Subtitles() []StreamInfo {
	return m.ofType(StreamSubtitle)
}

func (m Metadata) ofType(kind string) []StreamInfo {
	var out []StreamInfo
	for _, stream := range m.Streams {
		if stream.Type == kind {
			out = append(out, stream)
		}
	}
	return out
}

// Encode serializes metadata for persistence.
func (m Metadata) Encode() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

// Decode parses metadata persisted by Encode. An empty payload yields zero Metadata.
func Decode(payload string) (Metadata, error) {
	var meta Metadata
	if strings.TrimSpace(payload) == "" {
		return meta, nil
	}
	if err := json.Unmarshal([]byte(payload), &meta); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	return meta, nil
}

// subtitleCodecs maps ffprobe decoder names onto the short codec names
// extraction keys on.
var subtitleCodecs = map[string]string{
	"ass":    "ssa",
	"subrip": "srt",
	"webvtt": "vtt",
}

// SubtitleCodec normalizes an ffprobe subtitle codec name. Unknown names are
// returned lowercased.
func SubtitleCodec(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if short, ok := subtitleCodecs[name]; ok {
		return short
	}
	return name
}

func detailFor(stream Stream) *StreamDetail {
	return &StreamDetail{
		CodecName: stream.CodecName,
		Filename:  stream.Tags["filename"],
		MimeType:  stream.Tags["mimetype"],
	}
}

func isFont(stream Stream) bool {
	switch strings.ToLower(stream.CodecName) {
	case "ttf", "otf":
		return true
	}
	mime := strings.ToLower(stream.Tags["mimetype"])
	return strings.Contains(mime, "font") || strings.Contains(mime, "truetype") || strings.Contains(mime, "opentype")
}
