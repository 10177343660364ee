// Package model implements a tube-tokenizing video classifier built on
// anynet layers and trained with Adam plus decoupled weight decay.
package model

import (
	"errors"
	"fmt"
)

// Config holds the hyper-parameters of the model
type Config struct {
	NumClasses int `json:"num_classes"`
	// VideoShape is the (C, T, H, W) shape of a single clip
	VideoShape []int   `json:"video_shape"`
	NumLayers  int     `json:"num_layers"`
	NumHeads   int     `json:"num_heads"`
	HiddenDim  int     `json:"hidden_dim"`
	MLPDim     int     `json:"mlp_dim"`
	LR         float32 `json:"lr"`

	// AdamW settings
	Beta1       float32 `json:"beta1"`
	Beta2       float32 `json:"beta2"`
	Eps         float32 `json:"eps"`
	WeightDecay float32 `json:"weight_decay"`

	Seed uint64 `json:"seed"`
}

// DefaultConfig returns the settings used for UCF101 training.
func DefaultConfig(numClasses int, videoShape []int) Config {
	return Config{
		NumClasses:  numClasses,
		VideoShape:  append([]int(nil), videoShape...),
		NumLayers:   4,
		NumHeads:    12,
		HiddenDim:   768,
		MLPDim:      3072,
		LR:          1e-4,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: 0.01,
		Seed:        42,
	}
}

// Validate checks that the configuration describes a buildable model.
func (c Config) Validate() error {
	var errs []error
	if c.NumClasses < 2 {
		errs = append(errs, fmt.Errorf("num classes must be at least 2, got %d", c.NumClasses))
	}
	if len(c.VideoShape) != 4 {
		errs = append(errs, fmt.Errorf("video shape must be (C, T, H, W), got %v", c.VideoShape))
	} else {
		for _, d := range c.VideoShape {
			if d <= 0 {
				errs = append(errs, fmt.Errorf("video shape must be positive, got %v", c.VideoShape))
				break
			}
		}
	}
	if c.NumLayers < 0 {
		errs = append(errs, fmt.Errorf("num layers must not be negative, got %d", c.NumLayers))
	}
	if c.HiddenDim <= 0 || c.MLPDim <= 0 {
		errs = append(errs, fmt.Errorf("hidden and mlp dims must be positive, got %d and %d", c.HiddenDim, c.MLPDim))
	}
	if c.NumHeads <= 0 || (c.HiddenDim > 0 && c.HiddenDim%c.NumHeads != 0) {
		errs = append(errs, fmt.Errorf("hidden dim %d must be divisible by num heads %d", c.HiddenDim, c.NumHeads))
	}
	if c.LR <= 0 {
		errs = append(errs, fmt.Errorf("learning rate must be positive, got %v", c.LR))
	}
	return errors.Join(errs...)
}

// sameArchitecture reports whether parameters of a can be loaded into b
func sameArchitecture(a, b Config) bool {
	if a.NumClasses != b.NumClasses || a.NumLayers != b.NumLayers ||
		a.HiddenDim != b.HiddenDim || a.MLPDim != b.MLPDim || len(a.VideoShape) != len(b.VideoShape) {
		return false
	}
	// only the channel count shapes the parameters
	return len(a.VideoShape) == 0 || a.VideoShape[0] == b.VideoShape[0]
}
