package model

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
)

const (
	checkpointMagic   int32 = 20261019
	checkpointVersion int32 = 2
)

// ErrBadCheckpoint is returned for a checkpoint that fails to parse or
// whose checksum does not match
var ErrBadCheckpoint = errors.New("bad checkpoint")

// CheckpointInfo describes a checkpoint file. Epoch is the number of
// completed epochs.
type CheckpointInfo struct {
	Version       int
	Epoch         int
	GlobalStep    int
	Config        Config
	NumParams     int
	HasOptimizer  bool
	OptimizerStep int
	Checksum      uint32
}

// checkpoint is the decoded content of a checkpoint file
type checkpoint struct {
	info   CheckpointInfo
	params []float32
}

// SaveCheckpoint writes the model, its optimizer step count and the
// training position. Adam moments are not stored and restart on resume. The file is written next to path and renamed into place.
func (m *Model) SaveCheckpoint(path string, epoch, globalStep int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := m.writeCheckpoint(w, epoch, globalStep); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (m *Model) writeCheckpoint(out io.Writer, epoch, globalStep int) error {
	crc := crc32.NewIEEE()
	w := io.MultiWriter(out, crc)

	cfg, err := json.Marshal(m.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	params := m.flatParameters()

	header := []int64{
		int64(checkpointMagic),
		int64(checkpointVersion),
		int64(epoch),
		int64(globalStep),
		int64(len(cfg)),
		int64(len(params)),
		boolInt(m.Steps > 0),
		int64(m.Steps),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write checkpoint header: %w", err)
	}
	if _, err := w.Write(cfg); err != nil {
		return fmt.Errorf("failed to write checkpoint config: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, params); err != nil {
		return fmt.Errorf("failed to write parameters: %w", err)
	}
	return binary.Write(out, binary.LittleEndian, crc.Sum32())
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func readCheckpoint(path string) (*checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %s is too short", ErrBadCheckpoint, path)
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	sum := binary.LittleEndian.Uint32(trailer)
	if crc32.ChecksumIEEE(body) != sum {
		return nil, fmt.Errorf("%w: %s: checksum mismatch", ErrBadCheckpoint, path)
	}

	r := bytes.NewReader(body)
	header := make([]int64, 8)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("%w: %s: reading header: %v", ErrBadCheckpoint, path, err)
	}
	if header[0] != int64(checkpointMagic) {
		return nil, fmt.Errorf("%w: %s: bad magic number", ErrBadCheckpoint, path)
	}
	if header[1] != int64(checkpointVersion) {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrBadCheckpoint, path, header[1])
	}
	cfgLen, numParams := header[4], header[5]
	hasOptimizer := header[6] == 1
	want := cfgLen + 4*numParams
	if cfgLen < 0 || numParams < 0 || want != int64(r.Len()) {
		return nil, fmt.Errorf("%w: %s: size mismatch", ErrBadCheckpoint, path)
	}

	ck := &checkpoint{info: CheckpointInfo{
		Version:       int(header[1]),
		Epoch:         int(header[2]),
		GlobalStep:    int(header[3]),
		NumParams:     int(numParams),
		HasOptimizer:  hasOptimizer,
		OptimizerStep: int(header[7]),
		Checksum:      sum,
	}}
	cfg := make([]byte, cfgLen)
	if _, err := io.ReadFull(r, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: reading config: %v", ErrBadCheckpoint, path, err)
	}
	if err := json.Unmarshal(cfg, &ck.info.Config); err != nil {
		return nil, fmt.Errorf("%w: %s: decoding config: %v", ErrBadCheckpoint, path, err)
	}

	ck.params = make([]float32, numParams)
	if err := binary.Read(r, binary.LittleEndian, ck.params); err != nil {
		return nil, fmt.Errorf("%w: %s: reading parameters: %v", ErrBadCheckpoint, path, err)
	}
	return ck, nil
}

// InspectCheckpoint verifies a checkpoint and returns its header.
func InspectCheckpoint(path string) (CheckpointInfo, error) {
	ck, err := readCheckpoint(path)
	if err != nil {
		return CheckpointInfo{}, err
	}
	return ck.info, nil
}

// LoadCheckpoint rebuilds a model and its optimizer step count.
func LoadCheckpoint(path string) (*Model, CheckpointInfo, error) {
	ck, err := readCheckpoint(path)
	if err != nil {
		return nil, CheckpointInfo{}, err
	}
	m, err := New(ck.info.Config)
	if err != nil {
		return nil, CheckpointInfo{}, fmt.Errorf("%w: %s: %v", ErrBadCheckpoint, path, err)
	}
	if m.NumParameters() != ck.info.NumParams {
		return nil, CheckpointInfo{}, fmt.Errorf("%w: %s: %d parameters, config needs %d", ErrBadCheckpoint, path, ck.info.NumParams, m.NumParameters())
	}
	if err := m.setParameters(ck.params); err != nil {
		return nil, CheckpointInfo{}, fmt.Errorf("%w: %s: %v", ErrBadCheckpoint, path, err)
	}
	m.Steps = ck.info.OptimizerStep
	return m, ck.info, nil
}

// LoadWeights copies the parameters of a checkpoint into m. The
// optimizer state is not restored.
func (m *Model) LoadWeights(path string) error {
	ck, err := readCheckpoint(path)
	if err != nil {
		return err
	}
	if !sameArchitecture(ck.info.Config, m.Config) || ck.info.NumParams != m.NumParameters() {
		return fmt.Errorf("weights in %s do not fit the model: %d parameters, need %d", path, ck.info.NumParams, m.NumParameters())
	}
	return m.setParameters(ck.params)
}
