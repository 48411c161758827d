package audio

// PCMSink consumes captured PCM chunks. Capture sources fan out to every
// registered sink; Push must not block.
type PCMSink interface {
	Push(pcm []int16)
}
