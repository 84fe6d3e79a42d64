package serving

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yargevad/filepathx"
)

const (
	DEFAULT_SERVER_BINARY = "tensorflow_model_server"
	DEFAULT_REST_PORT     = 8501
	SAVED_MODEL_FILE      = "saved_model.pb"
)

// DeviceConfig decides which accelerators a child process may use. It is
// applied to the environment of the processes we launch and never to our
// own.
type DeviceConfig struct {
	UseGPU bool
	// VisibleDevices restricts GPU use to the listed device ordinals,
	// e.g. "0,1". Empty means all devices when UseGPU is set.
	VisibleDevices string
}

// Environ
// Returns a copy of base with CUDA_VISIBLE_DEVICES set according to the
// device configuration.
func (d DeviceConfig) Environ(base []string) []string {
	env := make([]string, 0, len(base)+1)
	for _, kv := range base {
		if !strings.HasPrefix(kv, "CUDA_VISIBLE_DEVICES=") {
			env = append(env, kv)
		}
	}
	switch {
	case !d.UseGPU:
		env = append(env, "CUDA_VISIBLE_DEVICES=")
	case d.VisibleDevices != "":
		env = append(env, "CUDA_VISIBLE_DEVICES="+d.VisibleDevices)
	}
	return env
}

// LocateSavedModel
// Finds the directory holding the exported SavedModel under exportDir.
// When several exports exist, the lexically last one wins, which is the
// newest for numeric or timestamped version directories.
func LocateSavedModel(exportDir string) (string, error) {
	matches, err := filepathx.Glob(filepath.Join(exportDir, "**",
		SAVED_MODEL_FILE))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%s does not contain a %s", exportDir,
			SAVED_MODEL_FILE)
	}
	sort.Strings(matches)
	return filepath.Dir(matches[len(matches)-1]), nil
}

// Server runs tensorflow_model_server for an exported model.
type Server struct {
	Binary         string
	ExportDir      string
	ModelName      string
	RESTPort       int
	Device         DeviceConfig
	StartupTimeout time.Duration

	cmd     *exec.Cmd
	exited  chan error
	staging string
}

func NewServer(exportDir string, device DeviceConfig) *Server {
	return &Server{
		Binary:         DEFAULT_SERVER_BINARY,
		ExportDir:      exportDir,
		ModelName:      DEFAULT_MODEL_NAME,
		RESTPort:       DEFAULT_REST_PORT,
		Device:         device,
		StartupTimeout: 2 * time.Minute,
	}
}

// basePath
// TensorFlow Serving expects numbered version directories below the model
// base path. Exports written straight into a directory are staged behind a
// version symlink.
func (s *Server) basePath() (string, error) {
	modelDir, err := LocateSavedModel(s.ExportDir)
	if err != nil {
		return "", err
	}
	modelDir, err = filepath.Abs(modelDir)
	if err != nil {
		return "", err
	}
	if _, convErr := strconv.ParseUint(filepath.Base(modelDir), 10,
		64); convErr == nil {
		return filepath.Dir(modelDir), nil
	}
	staging, err := os.MkdirTemp("", "nmt-serving-")
	if err != nil {
		return "", err
	}
	if err := os.Symlink(modelDir, filepath.Join(staging, "1")); err != nil {
		os.RemoveAll(staging)
		return "", err
	}
	s.staging = staging
	return staging, nil
}

func (s *Server) args(basePath string) []string {
	return []string{
		"--rest_api_port=" + strconv.Itoa(s.RESTPort),
		"--model_name=" + s.ModelName,
		"--model_base_path=" + basePath,
	}
}

// Start
// Launches the server and blocks until the model is available, returning
// a client for its signature.
func (s *Server) Start(ctx context.Context) (*RESTClient, error) {
	basePath, err := s.basePath()
	if err != nil {
		return nil, err
	}

	s.cmd = exec.Command(s.Binary, s.args(basePath)...)
	s.cmd.Env = s.Device.Environ(os.Environ())
	s.cmd.Stdout = os.Stderr
	s.cmd.Stderr = os.Stderr
	if err := s.cmd.Start(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to start %s: %w", s.Binary, err)
	}
	s.exited = make(chan error, 1)
	go func() {
		s.exited <- s.cmd.Wait()
	}()
	log.Printf("Started %s (pid %d) for %s", s.Binary, s.cmd.Process.Pid,
		basePath)

	client := NewRESTClient(fmt.Sprintf("http://localhost:%d", s.RESTPort),
		s.ModelName)
	deadline := time.Now().Add(s.StartupTimeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if ok, _ := client.Available(ctx); ok {
			return client, nil
		}
		select {
		case <-ctx.Done():
			s.Close()
			return nil, ctx.Err()
		case exitErr := <-s.exited:
			s.exited = nil
			s.cleanup()
			return nil, fmt.Errorf("%s exited before the model was "+
				"available: %v", s.Binary, exitErr)
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			s.Close()
			return nil, fmt.Errorf("model %s not available after %v",
				s.ModelName, s.StartupTimeout)
		}
	}
}

// Close stops the server and removes any staged base path.
func (s *Server) Close() error {
	defer s.cleanup()
	if s.cmd == nil || s.cmd.Process == nil || s.exited == nil {
		return nil
	}
	if err := s.cmd.Process.Kill(); err != nil {
		return err
	}
	<-s.exited
	s.exited = nil
	return nil
}

func (s *Server) cleanup() {
	if s.staging != "" {
		os.RemoveAll(s.staging)
		s.staging = ""
	}
}
