// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/pdiddy/expression-engine/internal/container"
	"github.com/pdiddy/expression-engine/internal/matrix"
)

// defaultRDSImage bundles R with a script that prints the counts slot of a
// Seurat object as CSV on stdout.
const defaultRDSImage = "ghcr.io/pdiddy/seurat-export:1"

const containerInputPath = "/data/input.rds"

// RDSConverter reads Seurat .rds objects through a containerized Rscript;
// R serialization is the one raw format the pipeline cannot parse natively.
type RDSConverter struct {
	image   string
	runtime container.Runtime
}

// NewRDSConverter detects a container runtime and verifies the image.
func NewRDSConverter(image string) (*RDSConverter, error) {
	if image == "" {
		image = defaultRDSImage
	}
	rt, err := container.Detect()
	if err != nil {
		return nil, err
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("rds backend: %w (pull it first)", err)
	}
	return &RDSConverter{image: image, runtime: rt}, nil
}

// Convert mounts the .rds file read-only and parses the CSV the container
// writes to stdout.
func (c *RDSConverter) Convert(rawPath string) (*matrix.Matrix, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", rawPath, err)
	}

	var out bytes.Buffer
	mounts := []container.Mount{{HostPath: abs, ContainerPath: containerInputPath}}
	if err := c.runtime.Run(c.image, []string{containerInputPath}, mounts, &out); err != nil {
		return nil, fmt.Errorf("converting %s: %w", rawPath, err)
	}

	m, err := matrix.ReadCSV(&out)
	if err != nil {
		return nil, fmt.Errorf("parsing container output for %s: %w", rawPath, err)
	}
	return m, nil
}
