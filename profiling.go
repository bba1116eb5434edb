package main

import (
	"os"
	"runtime/pprof"
	"sync"

	"go.uber.org/zap"
)

// cpuProfile is a CPU profile being written to a file.
type cpuProfile struct {
	path string
	file *os.File
	once sync.Once
	log  *zap.Logger
}

// startDefaultPGORecording begins writing CPU profiles to the provided path.
func startDefaultPGORecording(path string, log *zap.Logger) (*cpuProfile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	log.Info("recording cpu profile", zap.String("path", path))
	return &cpuProfile{path: path, file: f, log: log}, nil
}

// Stop ends the profile. Later calls do nothing.
func (p *cpuProfile) Stop() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		pprof.StopCPUProfile()
		if err := p.file.Close(); err != nil {
			p.log.Warn("closing cpu profile", zap.String("path", p.path), zap.Error(err))
			return
		}
		p.log.Info("cpu profile written", zap.String("path", p.path))
	})
}
