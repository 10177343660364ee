package cmd

import (
	"fmt"
	"io"

	"github.com/lepinkainen/vidtrain/model"
	"github.com/lepinkainen/vidtrain/ui"
)

// InspectCmd verifies a checkpoint's checksum and prints what it holds.
type InspectCmd struct {
	Checkpoint string `arg:"" name:"checkpoint" help:"Checkpoint file to inspect" type:"existingfile"`

	Out io.Writer `kong:"-"`
}

// Run executes the inspect command.
func (cmd *InspectCmd) Run() error {
	out := writerOrStdout(cmd.Out)

	info, err := model.InspectCheckpoint(cmd.Checkpoint)
	if err != nil {
		fmt.Fprintf(out, "%s\n", ui.ErrorStyle.Render(fmt.Sprintf("❌ %s", cmd.Checkpoint)))
		return err
	}

	cfg := info.Config
	fmt.Fprintf(out, "%s\n", ui.SuccessStyle.Render(fmt.Sprintf("✅ %s (crc32 %08X)", cmd.Checkpoint, info.Checksum)))
	rows := [][2]string{
		{"format version", fmt.Sprint(info.Version)},
		{"epoch", fmt.Sprint(info.Epoch)},
		{"global step", fmt.Sprint(info.GlobalStep)},
		{"parameters", fmt.Sprint(info.NumParams)},
		{"optimizer state", optimizerState(info)},
		{"num classes", fmt.Sprint(cfg.NumClasses)},
		{"video shape", fmt.Sprint(cfg.VideoShape)},
		{"layers", fmt.Sprint(cfg.NumLayers)},
		{"heads", fmt.Sprint(cfg.NumHeads)},
		{"hidden dim", fmt.Sprint(cfg.HiddenDim)},
		{"mlp dim", fmt.Sprint(cfg.MLPDim)},
		{"lr", fmt.Sprint(cfg.LR)},
		{"seed", fmt.Sprint(cfg.Seed)},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  %-16s %s\n", row[0]+":", ui.MetricStyle.Render(row[1]))
	}
	return nil
}

func optimizerState(info model.CheckpointInfo) string {
	if !info.HasOptimizer {
		return "none"
	}
	return fmt.Sprintf("AdamW after %d updates", info.OptimizerStep)
}
