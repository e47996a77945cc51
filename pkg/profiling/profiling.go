package profiling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/tvet-apply/applicants-api/config"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"go.uber.org/zap"
)

// sample type names accepted in O11Y_PROFILING_SAMPLE_TYPES, in default order
var sampleTypes = []struct {
	name  string
	types []pyroscope.ProfileType
}{
	{"cpu", []pyroscope.ProfileType{pyroscope.ProfileCPU}},
	{"alloc_space", []pyroscope.ProfileType{pyroscope.ProfileAllocSpace}},
	{"alloc_objects", []pyroscope.ProfileType{pyroscope.ProfileAllocObjects}},
	{"goroutines", []pyroscope.ProfileType{pyroscope.ProfileGoroutines}},
	{"mutex", []pyroscope.ProfileType{pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration}},
	{"block", []pyroscope.ProfileType{pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration}},
}

const defaultAppName = "applicants-api"

// InitProfiler starts the pyroscope agent. The returned func stops it.
func InitProfiler(cfg config.ProfilingConfig, obs config.ObservabilityConfig, environment string) (func(), error) {
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return func() {}, nil
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("profiling endpoint is required when profiling is enabled")
	}
	interval := time.Duration(cfg.UploadIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	types, err := parseProfileTypes(cfg.SampleTypes)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.AppName)
	if appName == "" {
		appName = defaultAppName
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		Tags:            profileTags(obs, environment),
		ServerAddress:   endpoint,
		UploadRate:      interval,
		ProfileTypes:    types,
		Logger:          agentLogger{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start profiler: %w", err)
	}

	logger.Info("Continuous profiling initialized",
		zap.String("application_name", appName),
		zap.String("endpoint", endpoint),
		zap.Duration("upload_interval", interval))

	return func() {
		if err := profiler.Stop(); err != nil {
			logger.Error("Failed to stop profiler", zap.Error(err))
		}
	}, nil
}

// Do runs fn with an "operation" profiling label, so spreadsheet work
// shows up separately in flame graphs
func Do(ctx context.Context, operation string, fn func(context.Context)) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels("operation", operation), fn)
}

func parseProfileTypes(value string) ([]pyroscope.ProfileType, error) {
	wanted := map[string]bool{}
	for _, raw := range strings.Split(value, ",") {
		if name := strings.ToLower(strings.TrimSpace(raw)); name != "" {
			wanted[name] = true
		}
	}

	var types []pyroscope.ProfileType
	for _, st := range sampleTypes {
		if len(wanted) == 0 || wanted[st.name] {
			types = append(types, st.types...)
			delete(wanted, st.name)
		}
	}
	for name := range wanted {
		return nil, fmt.Errorf("unsupported O11Y_PROFILING_SAMPLE_TYPES value: %q", name)
	}
	return types, nil
}

func profileTags(obs config.ObservabilityConfig, environment string) map[string]string {
	tags := map[string]string{}
	for k, v := range map[string]string{
		"service_name":    obs.ServiceName,
		"namespace":       obs.ServiceNamespace,
		"environment":     environment,
		"service_version": obs.ServiceVersion,
		"instance":        obs.ServiceInstanceID,
	} {
		if v = strings.TrimSpace(v); v != "" {
			tags[k] = v
		}
	}
	return tags
}

// agentLogger routes pyroscope agent output through zap
type agentLogger struct{}

func (agentLogger) Infof(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), zap.String("component", "pyroscope"))
}

func (agentLogger) Debugf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...), zap.String("component", "pyroscope"))
}

func (agentLogger) Errorf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...), zap.String("component", "pyroscope"))
}
