// Package media shells out to ffprobe for audio inspection.
package media

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/klangab/whisper-batch-worker/pkg/log"
)

type Prober struct {
	ffprobeCmd string
}

func NewProber() Prober {
	return Prober{ffprobeCmd: "ffprobe"}
}

// ProbeDuration returns the duration of an audio file in seconds.
func (p Prober) ProbeDuration(path string) (float64, error) {
	cmdPath, err := exec.LookPath(p.ffprobeCmd)
	if err != nil {
		return 0, err
	}
	cmd := exec.Command(cmdPath, p.probeArgs(path)...)

	output, err := cmd.Output()
	if err != nil {
		log.Error("Failed to run ffprobe: %v", err)
		return 0, err
	}

	var probeResult struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probeResult); err != nil {
		log.Error("Failed to parse ffprobe output: %v", err)
		return 0, err
	}
	if probeResult.Format.Duration == "" {
		return 0, fmt.Errorf("no duration in ffprobe output for %s", path)
	}
	duration, err := strconv.ParseFloat(probeResult.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", probeResult.Format.Duration, err)
	}
	return duration, nil
}

func (Prober) probeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	}
}
