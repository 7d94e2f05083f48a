package telemetry

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// mutexProfileFraction and blockProfileRate are applied only when the
// matching profile type is requested.
const (
	mutexProfileFraction = 5
	blockProfileRate     = 5
)

// ProfilerConfig holds continuous profiling settings.
type ProfilerConfig struct {
	Enabled         bool
	ServerAddress   string
	ApplicationName string
	// ProfileTypes names what to collect: cpu, alloc_objects, alloc_space,
	// inuse_objects, inuse_space, goroutines, mutex, block. "mutex" and
	// "block" expand to both their count and duration profiles.
	ProfileTypes []string
}

// Profiler pushes runtime profiles to a Pyroscope server. A disabled profiler
// holds no session and Stop is a no-op.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	config   ProfilerConfig
	mu       sync.Mutex
	stopped  bool
}

// NewProfiler starts a profiling session, or returns a no-op profiler when
// profiling is disabled.
func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}

	if cfg.ServerAddress == "" {
		return nil, fmt.Errorf("profiler server address is required when profiling is enabled")
	}
	if cfg.ApplicationName == "" {
		return nil, fmt.Errorf("profiler application name is required when profiling is enabled")
	}

	types, err := parseProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		switch t {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(mutexProfileFraction)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(blockProfileRate)
		}
	}

	tags := map[string]string{}
	if hostname := os.Getenv("HOSTNAME"); hostname != "" {
		tags["hostname"] = hostname
	}

	session, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          newPyroscopeLogger(logger),
		Tags:            tags,
		ProfileTypes:    types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	p.profiler = session

	logger.Info("Pyroscope profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application_name", cfg.ApplicationName),
		zap.Int("profile_types", len(types)),
	)
	return p, nil
}

// parseProfileTypes maps configured names onto Pyroscope profile types.
// Duplicates collapse and unknown names are rejected.
func parseProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	var (
		types []pyroscope.ProfileType
		seen  = map[pyroscope.ProfileType]bool{}
	)
	add := func(ts ...pyroscope.ProfileType) {
		for _, t := range ts {
			if !seen[t] {
				seen[t] = true
				types = append(types, t)
			}
		}
	}

	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cpu":
			add(pyroscope.ProfileCPU)
		case "alloc_objects":
			add(pyroscope.ProfileAllocObjects)
		case "alloc_space":
			add(pyroscope.ProfileAllocSpace)
		case "inuse_objects":
			add(pyroscope.ProfileInuseObjects)
		case "inuse_space":
			add(pyroscope.ProfileInuseSpace)
		case "goroutines":
			add(pyroscope.ProfileGoroutines)
		case "mutex":
			add(pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
		case "block":
			add(pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
		case "":
		default:
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
	}
	if len(types) == 0 {
		return nil, fmt.Errorf("at least one profile type is required when profiling is enabled")
	}
	return types, nil
}

// Stop flushes and ends the session. Safe to call more than once.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped || p.profiler == nil {
		p.stopped = true
		return nil
	}
	p.stopped = true

	if err := p.profiler.Stop(); err != nil {
		p.logger.Error("Error stopping profiler", zap.Error(err))
		return fmt.Errorf("failed to stop profiler: %w", err)
	}
	p.logger.Info("Pyroscope profiler stopped")
	return nil
}

// IsEnabled reports whether a profiling session is running.
func (p *Profiler) IsEnabled() bool {
	return p.profiler != nil
}

// pyroscopeLogger adapts zap to the logger interface the Pyroscope client expects.
type pyroscopeLogger struct {
	sugar *zap.SugaredLogger
}

func newPyroscopeLogger(logger *zap.Logger) pyroscope.Logger {
	return &pyroscopeLogger{sugar: logger.Named("pyroscope").Sugar()}
}

func (l *pyroscopeLogger) Infof(format string, args ...any)  { l.sugar.Infof(format, args...) }
func (l *pyroscopeLogger) Debugf(format string, args ...any) { l.sugar.Debugf(format, args...) }
func (l *pyroscopeLogger) Errorf(format string, args ...any) { l.sugar.Errorf(format, args...) }
