package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(metrics, tracing string) Config {
	return Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: metrics,
		TracingExporter: tracing,
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{ServiceName: "test-service"})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.False(t, provider.PrometheusEnabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_Exporters(t *testing.T) {
	tests := []struct {
		name           string
		config         Config
		wantErr        bool
		wantPrometheus bool
	}{
		{"prometheus", testConfig(ExporterPrometheus, ExporterNone), false, true},
		{"stdout", testConfig(ExporterStdout, ExporterStdout), false, false},
		{"invalid metrics exporter", testConfig("invalid", ExporterNone), true, false},
		{"invalid tracing exporter", testConfig(ExporterPrometheus, "invalid"), true, false},
		{"otlp tracing without endpoint", testConfig(ExporterPrometheus, ExporterOTLP), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			provider, err := NewProvider(ctx, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer func() { _ = provider.Shutdown(ctx) }()

			assert.True(t, provider.Enabled())
			assert.Equal(t, tt.wantPrometheus, provider.PrometheusEnabled())
			assert.Equal(t, tt.config.ServiceName, provider.Config().ServiceName)
			assert.NotNil(t, provider.Metrics())
			assert.NotNil(t, provider.Tracer("test"))
		})
	}
}

func TestProvider_Shutdown(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)

	provider.Metrics().RecordSlotSearch(ctx, StatusSuccess, 3, time.Second)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestNewProvider_ResourceDescribesScheduling(t *testing.T) {
	ctx := context.Background()
	config := testConfig(ExporterPrometheus, ExporterNone)
	config.ServiceInstanceID = "calpal-0"
	config.DefaultTimeZone = "Europe/Berlin"
	config.CalendarProviders = []string{"caldav", "caldav:team", "google"}

	provider, err := NewProvider(ctx, config)
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	res := provider.Resource()
	require.NotNil(t, res)

	tz, ok := res.Set().Value(AttrDefaultTimeZone)
	require.True(t, ok)
	assert.Equal(t, "Europe/Berlin", tz.AsString())

	providers, ok := res.Set().Value(AttrCalendarProviders)
	require.True(t, ok)
	assert.Equal(t, []string{"caldav", "caldav:team", "google"}, providers.AsStringSlice())

	instance, ok := res.Set().Value("service.instance.id")
	require.True(t, ok)
	assert.Equal(t, "calpal-0", instance.AsString())
}

func TestNewProvider_ResourceOmitsUnsetSchedulingAttributes(t *testing.T) {
	ctx := context.Background()
	provider, err := NewProvider(ctx, testConfig(ExporterPrometheus, ExporterNone))
	require.NoError(t, err)
	defer func() { _ = provider.Shutdown(ctx) }()

	_, ok := provider.Resource().Set().Value(AttrDefaultTimeZone)
	assert.False(t, ok)
	_, ok = provider.Resource().Set().Value(AttrCalendarProviders)
	assert.False(t, ok)
}

func TestNewProvider_DisabledHasNoResource(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{DefaultTimeZone: "UTC"})
	require.NoError(t, err)
	assert.Nil(t, provider.Resource())
}
