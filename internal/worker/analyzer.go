package worker

import (
	"fmt"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit stereo.
const bytesPerSample = 4

func probeDuration(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("probe open failed: %w", err)
	}
	defer f.Close()

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return 0, fmt.Errorf("probe decode failed: %w", err)
	}
	if decoder.SampleRate() <= 0 || decoder.Length() <= 0 {
		return 0, fmt.Errorf("probe found no samples in %s", path)
	}

	samples := decoder.Length() / bytesPerSample
	return int(samples / int64(decoder.SampleRate())), nil
}

// ProbeDurationFunc allows tests to override the duration probe.
var ProbeDurationFunc = probeDuration
