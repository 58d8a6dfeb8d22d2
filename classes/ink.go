package classes

import "github.com/wippyai/redpkg/red"

type PlaybackOptionsUpdateData struct {
	red.Base
	PlaybackOptions *InkanimPlaybackOptions `red:"playbackOptions,inkanimPlaybackOptions"`
}

func (*PlaybackOptionsUpdateData) ClassName() string { return "PlaybackOptionsUpdateData" }

type InkanimPlaybackOptions struct {
	red.Base
	PlayReversed   bool      `red:"playReversed,Bool"`
	LoopType       red.CName `red:"loopType,CName"`
	LoopCounter    uint32    `red:"loopCounter,Uint32"`
	LoopInfinite   bool      `red:"loopInfinite,Bool"`
	ExecutionDelay float32   `red:"executionDelay,Float"`
	FromMarker     red.CName `red:"fromMarker,CName"`
	ToMarker       red.CName `red:"toMarker,CName"`
}

func (*InkanimPlaybackOptions) ClassName() string { return "inkanimPlaybackOptions" }
