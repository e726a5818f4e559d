package adapter

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sort"

	"github.com/Heterod0x/oto/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// VoiceActivityDetector estimates the ratio of a recording that
// contains speech, in [0,1].
type VoiceActivityDetector interface {
	VoiceActivityRatio(ctx context.Context, audio []byte) (float64, error)
}

// SoundQualityEvaluator scores the acoustic quality of a recording, in
// [0,1].
type SoundQualityEvaluator interface {
	SoundQualityScore(ctx context.Context, audio []byte) (float64, error)
}

const (
	frameSamples  = 320 // 20ms at 16kHz mono
	activityFloor = 500.0
	clipThreshold = 30000.0
)

// EnergyAcoustic implements both detectors with frame-energy analysis
// of PCM16LE mono audio. A WAV container header is skipped if present.
type EnergyAcoustic struct{}

func NewEnergyAcoustic() *EnergyAcoustic {
	return &EnergyAcoustic{}
}

func (a *EnergyAcoustic) VoiceActivityRatio(ctx context.Context, audio []byte) (float64, error) {
	frames, err := frameEnergies(audio)
	if err != nil {
		return 0, err
	}

	active := 0
	for _, rms := range frames {
		if rms > activityFloor {
			active++
		}
	}
	return float64(active) / float64(len(frames)), nil
}

func (a *EnergyAcoustic) SoundQualityScore(ctx context.Context, audio []byte) (float64, error) {
	frames, err := frameEnergies(audio)
	if err != nil {
		return 0, err
	}

	sorted := make([]float64, len(frames))
	copy(sorted, frames)
	sort.Float64s(sorted)

	// Signal-to-noise estimate: loud frames against the noise floor.
	noise := sorted[len(sorted)/10]
	signal := sorted[len(sorted)*9/10]
	if noise < 1 {
		noise = 1
	}
	snr := 20 * math.Log10(signal/noise)

	score := snr / 30
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	// Clipped recordings lose quality even with a good SNR.
	clipped := 0
	for _, rms := range frames {
		if rms > clipThreshold {
			clipped++
		}
	}
	score *= 1 - float64(clipped)/float64(len(frames))

	return score, nil
}

// frameEnergies splits PCM16LE samples into 20ms frames and returns the
// RMS energy of each frame.
func frameEnergies(audio []byte) ([]float64, error) {
	pcm := audio
	if bytes.HasPrefix(pcm, []byte("RIFF")) && len(pcm) > 44 {
		pcm = pcm[44:]
	}
	if len(pcm) < frameSamples*2 {
		return nil, goerr.New("audio too short for acoustic analysis",
			goerr.V("bytes", len(audio)), goerr.T(model.ErrTagSchema))
	}

	samples := len(pcm) / 2
	numFrames := samples / frameSamples
	frames := make([]float64, 0, numFrames)
	for f := 0; f < numFrames; f++ {
		var sum float64
		for i := 0; i < frameSamples; i++ {
			s := int16(binary.LittleEndian.Uint16(pcm[(f*frameSamples+i)*2:]))
			sum += float64(s) * float64(s)
		}
		frames = append(frames, math.Sqrt(sum/frameSamples))
	}
	return frames, nil
}
