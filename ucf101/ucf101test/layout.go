// Package ucf101test writes small UCF101-shaped directory trees for tests.
package ucf101test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Layout is a generated dataset root and annotation directory
type Layout struct {
	Root        string
	Annotations string
	// Videos lists every video path in class order
	Videos []string
	// Train and Test hold the paths listed in fold 1
	Train []string
	Test  []string
}

// Write creates perClass empty videos for each class under dir. Odd
// groups go to the fold 1 test list, the rest to the train list.
func Write(tb testing.TB, dir string, classes []string, perClass int) Layout {
	tb.Helper()

	l := Layout{
		Root:        filepath.Join(dir, "UCF-101"),
		Annotations: filepath.Join(dir, "ucfTrainTestlist"),
	}
	if err := os.MkdirAll(l.Annotations, 0755); err != nil {
		tb.Fatalf("Failed to create annotation dir: %v", err)
	}

	var trainList, testList, classInd strings.Builder
	for ci, class := range classes {
		classDir := filepath.Join(l.Root, class)
		if err := os.MkdirAll(classDir, 0755); err != nil {
			tb.Fatalf("Failed to create class dir: %v", err)
		}
		fmt.Fprintf(&classInd, "%d %s\n", ci+1, class)

		for g := 1; g <= perClass; g++ {
			name := fmt.Sprintf("v_%s_g%02d_c01.avi", class, g)
			path := filepath.Join(classDir, name)
			if err := os.WriteFile(path, nil, 0644); err != nil {
				tb.Fatalf("Failed to create video: %v", err)
			}
			l.Videos = append(l.Videos, path)

			rel := class + "/" + name
			if g%2 == 1 {
				fmt.Fprintf(&testList, "%s\n", rel)
				l.Test = append(l.Test, path)
			} else {
				fmt.Fprintf(&trainList, "%s %d\n", rel, ci+1)
				l.Train = append(l.Train, path)
			}
		}
	}

	files := map[string]string{
		"trainlist01.txt": trainList.String(),
		"testlist01.txt":  testList.String(),
		"classInd.txt":    classInd.String(),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(l.Annotations, name), []byte(content), 0644); err != nil {
			tb.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return l
}
