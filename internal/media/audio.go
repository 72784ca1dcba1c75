package media

import (
	"bytes"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrogram parameters. The audio models are trained on one second of
// 16 kHz mono audio framed at 255 samples with a 128-sample hop, so the
// decoded shape is fixed at 124 frames x 129 frequency bins.
const (
	audioSamples = 16000
	frameLength  = 255
	frameStep    = 128
	fftLength    = 256
)

// DecodeAudio decodes a WAV upload into a magnitude spectrogram indexed
// [frame][bin][channel] with a single trailing channel, the shape the
// audio-event model consumes.
func DecodeAudio(data []byte) ([][][]float32, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty upload", ErrUnprocessable)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrUnprocessable)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: read pcm: %v", ErrUnprocessable, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("%w: wav contains no samples", ErrUnprocessable)
	}

	samples := monoFloat(buf.Data, buf.Format.NumChannels, int(dec.BitDepth))
	samples = padOrTrim(samples, audioSamples)

	return spectrogram(samples), nil
}

// monoFloat downmixes interleaved PCM to mono and scales to [-1, 1].
func monoFloat(data []int, channels, bitDepth int) []float64 {
	if channels < 1 {
		channels = 1
	}
	scale := float64(int64(1) << (bitDepth - 1))
	if bitDepth <= 0 {
		scale = 1 << 15
	}

	n := len(data) / channels
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(data[i*channels+c])
		}
		out[i] = sum / float64(channels) / scale
	}
	return out
}

func padOrTrim(s []float64, n int) []float64 {
	if len(s) >= n {
		return s[:n]
	}
	out := make([]float64, n)
	copy(out, s)
	return out
}

// spectrogram computes an STFT magnitude spectrogram with a periodic
// Hann window, zero-padding each frame to the FFT length.
func spectrogram(samples []float64) [][][]float32 {
	window := make([]float64, frameLength)
	for i := range window {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/frameLength)
	}

	fft := fourier.NewFFT(fftLength)
	numFrames := 1 + (len(samples)-frameLength)/frameStep
	numBins := fftLength/2 + 1

	frames := make([][][]float32, numFrames)
	padded := make([]float64, fftLength)
	for f := 0; f < numFrames; f++ {
		start := f * frameStep
		for i := 0; i < frameLength; i++ {
			padded[i] = samples[start+i] * window[i]
		}
		for i := frameLength; i < fftLength; i++ {
			padded[i] = 0
		}

		coeffs := fft.Coefficients(nil, padded)
		bins := make([][]float32, numBins)
		for i, c := range coeffs {
			bins[i] = []float32{float32(cmplx.Abs(c))}
		}
		frames[f] = bins
	}
	return frames
}
