// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runPipedFunc  func(name string, args []string, stdout io.Writer) error
	pipedCalls    [][]string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(name string, args []string, stdout io.Writer) error {
	m.pipedCalls = append(m.pipedCalls, append([]string{name}, args...))
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdout)
	}
	return nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "neither available",
			exec: &mockExecutor{
				availableBins: map[string]bool{},
				runnableCmds:  map[string]bool{},
			},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "both available, docker preferred",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"docker info": true, "podman info": true},
			},
			wantName: "docker",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime found") {
					t.Errorf("error should mention no runtime found, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		image   string
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name:  "docker image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newDocker(e) },
			image: "seurat-export:1",
			cmds:  map[string]bool{"docker image inspect seurat-export:1": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDocker(e) },
			image:   "seurat-export:1",
			cmds:    map[string]bool{},
			wantErr: true,
		},
		{
			name:  "podman image exists",
			mkRT:  func(e *mockExecutor) Runtime { return newPodman(e) },
			image: "seurat-export:1",
			cmds:  map[string]bool{"podman image exists seurat-export:1": true},
		},
		{
			name:    "podman image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newPodman(e) },
			image:   "seurat-export:1",
			cmds:    map[string]bool{},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{runnableCmds: tt.cmds}
			rt := tt.mkRT(exec)
			err := rt.ImageExists(tt.image)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.image) {
					t.Errorf("error should mention image name, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRun(t *testing.T) {
	exec := &mockExecutor{
		runPipedFunc: func(name string, args []string, stdout io.Writer) error {
			if name != "docker" {
				return errors.New("expected docker binary")
			}
			_, err := io.WriteString(stdout, "gene,s1\nTP53,4\n")
			return err
		},
	}
	rt := newDocker(exec)

	var out bytes.Buffer
	mounts := []Mount{{HostPath: "/tmp/input.rds", ContainerPath: "/data/input.rds"}}
	if err := rt.Run("seurat-export:1", []string{"/data/input.rds"}, mounts, &out); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.String() != "gene,s1\nTP53,4\n" {
		t.Errorf("output = %q", out.String())
	}

	if len(exec.pipedCalls) != 1 {
		t.Fatalf("got %d piped calls, want 1", len(exec.pipedCalls))
	}
	cmd := strings.Join(exec.pipedCalls[0], " ")
	if !strings.Contains(cmd, "-v /tmp/input.rds:/data/input.rds:ro") {
		t.Errorf("mount flag missing from command: %s", cmd)
	}
	if !strings.Contains(cmd, "run --rm") {
		t.Errorf("run flags missing from command: %s", cmd)
	}
}

func TestRunFailure(t *testing.T) {
	exec := &mockExecutor{
		runPipedFunc: func(string, []string, io.Writer) error {
			return errors.New("container exited with code 1")
		},
	}
	rt := newPodman(exec)

	var out bytes.Buffer
	err := rt.Run("seurat-export:1", nil, nil, &out)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "seurat-export:1") {
		t.Errorf("error should mention image, got: %v", err)
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	if got := newDocker(exec).Name(); got != "docker" {
		t.Errorf("docker runtime name = %q", got)
	}
	if got := newPodman(exec).Name(); got != "podman" {
		t.Errorf("podman runtime name = %q", got)
	}
}
