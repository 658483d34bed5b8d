package interfaces

import (
	"context"
)

// ScriptRequest carries the hints available to script synthesis
type ScriptRequest struct {
	Title       string
	Description string
	Duration    int    // Target duration in seconds, 0 if unspecified
	Style       string // Optional style hint
}

// ScriptProvider synthesizes narration text from a generation request
type ScriptProvider interface {
	GenerateScript(ctx context.Context, req ScriptRequest) (string, error)
}

// SpeechProvider synthesizes narration audio from script text, returning a
// reference to the produced audio
type SpeechProvider interface {
	SynthesizeSpeech(ctx context.Context, script string) (string, error)
}

// RenderResult is the output of the video-rendering provider
type RenderResult struct {
	VideoURL     string
	ThumbnailURL string
}

// RenderProvider renders a video from narration audio and a title
type RenderProvider interface {
	RenderVideo(ctx context.Context, audioURL, title string) (*RenderResult, error)
}

// SubtitleProvider extracts subtitles from narration audio, returning a
// reference to the produced subtitle track
type SubtitleProvider interface {
	ExtractSubtitles(ctx context.Context, audioURL string) (string, error)
}
