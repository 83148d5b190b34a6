package tts

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/mattn/go-shellwords"
	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/repositories"
	"github.com/satriahrh/lingualoop/internal/audio"
)

const vendorExec = "exec"

// ExecTTS runs a local synthesizer command per phrase. The command receives
// one JSON request on stdin and writes JSON lines carrying base64 PCM chunks
// of 16 kHz mono 16-bit audio on stdout.
type ExecTTS struct {
	cmd    []string
	logger *zap.Logger
	// local engines are CPU bound; run one at a time
	mu sync.Mutex
}

type execRequest struct {
	Text       string `json:"text"`
	Voice      string `json:"voice"`
	Language   string `json:"language"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type execResponse struct {
	PCMBase64 string `json:"pcm_base64"`
	Final     bool   `json:"final"`
}

var _ repositories.TextToSpeech = (*ExecTTS)(nil)

// NewExecTTS parses command with shell quoting rules
func NewExecTTS(command string, logger *zap.Logger) (*ExecTTS, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &ExecTTS{cmd: args, logger: logger}, nil
}

// SynthesizeToFile implements repositories.TextToSpeech
func (e *ExecTTS) SynthesizeToFile(ctx context.Context, req repositories.SynthesisRequest, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(execRequest{
		Text:       req.Text,
		Voice:      req.Voice,
		Language:   req.LanguageTag,
		SampleRate: audio.SampleRate,
		Channels:   audio.Channels,
	})
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return domain.Cancelled(ctx, err)
		}
		e.logger.Error("TTS command failed", zap.Error(err), zap.String("stderr", stderr.String()))
		return domain.NewVendorError(vendorExec, "command_failed", err)
	}

	var pcm []byte
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp execResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			return domain.NewVendorError(vendorExec, "malformed_response", err)
		}
		chunk, err := base64.StdEncoding.DecodeString(resp.PCMBase64)
		if err != nil {
			return domain.NewVendorError(vendorExec, "malformed_response", err)
		}
		pcm = append(pcm, chunk...)
		if resp.Final {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.NewVendorError(vendorExec, "malformed_response", err)
	}
	if len(pcm) == 0 {
		return domain.NewVendorError(vendorExec, "empty_audio", nil)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err := audio.WritePCM16(tmp, pcm); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
