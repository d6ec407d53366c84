package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	co2errors "github.com/YuminosukeSato/co2ml/pkg/errors"
)

func TestTestLoggerCapturesFields(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)

	modelLogger := logger.With(
		ModelNameKey, "RandomForestRegressor",
		ComponentKey, "ensemble",
	)
	modelLogger.Info("Training started",
		OperationKey, OperationFit,
		SamplesKey, 700,
		FeaturesKey, 42,
	)
	modelLogger.Info("Training completed",
		OperationKey, OperationFit,
		TreesKey, 5,
		DurationMsKey, 12.5,
	)

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatalf("GetLogEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e[ModelNameKey] != "RandomForestRegressor" {
			t.Errorf("entry missing model name: %v", e)
		}
	}
	if !logger.ContainsField(SamplesKey, float64(700)) {
		t.Error("expected samples field")
	}
	if got := len(logger.EntriesWith(OperationKey, OperationFit)); got != 2 {
		t.Errorf("EntriesWith(fit) = %d, want 2", got)
	}
}

func TestTestLoggerLevelFiltering(t *testing.T) {
	logger, buf := NewTestLogger(LevelWarn)

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	out := buf.String()
	if strings.Contains(out, `"debug"`) || strings.Contains(out, `"info"`) {
		t.Errorf("records below Warn were written: %s", out)
	}
	if !logger.ContainsMessage("warn") || !logger.ContainsMessage("error") {
		t.Errorf("expected warn and error records: %s", out)
	}
	if logger.Enabled(context.Background(), LevelInfo) {
		t.Error("Info should not be enabled at Warn")
	}
}

func TestTestLoggerErrorLeadingValue(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Error("Pipeline failed", co2errors.ErrEmptyData, StepKey, "clean")

	entries, err := logger.GetLogEntries()
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries=%v err=%v", entries, err)
	}
	if entries[0][ErrAttrKey] != "empty data" {
		t.Errorf("error field = %v", entries[0][ErrAttrKey])
	}
	if entries[0][StepKey] != "clean" {
		t.Errorf("step field = %v", entries[0][StepKey])
	}
}

func TestTestLoggerConcurrent(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				logger.Info("tree fitted", IterationKey, i, "worker", id)
			}
		}(g)
	}
	wg.Wait()

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatalf("GetLogEntries: %v", err)
	}
	if len(entries) != 80 {
		t.Errorf("expected 80 entries, got %d", len(entries))
	}
}

func TestZerologLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo).With(ComponentKey, "metrics")

	logger.Debug("hidden")
	logger.Info("Evaluation completed", R2ScoreKey, 0.93, RMSEKey, 17.2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["message"] != "Evaluation completed" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec[ComponentKey] != "metrics" {
		t.Errorf("component = %v", rec[ComponentKey])
	}
	if rec[R2ScoreKey] != 0.93 {
		t.Errorf("r2 = %v", rec[R2ScoreKey])
	}
}

func TestZerologLoggerErrorDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	err := co2errors.NewSchemaError("Make", "not found")
	logger.Error("Load failed", err, OperationKey, OperationLoad)

	var rec map[string]interface{}
	if jerr := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if !strings.Contains(rec["error"].(string), "column 'Make'") {
		t.Errorf("error = %v", rec["error"])
	}
	detail, ok := rec["error.detail"].(map[string]interface{})
	if !ok {
		t.Fatalf("error.detail missing: %v", rec)
	}
	if detail["type"] != "SchemaError" {
		t.Errorf("detail type = %v", detail["type"])
	}
	if rec[OperationKey] != OperationLoad {
		t.Errorf("operation = %v", rec[OperationKey])
	}
}

func TestZerologLoggerErrorKeyField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Warn("Residual summary skipped", ErrAttrKey, co2errors.ErrUndefinedMetric, StepKey, "residuals")

	var rec map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["error"] != "undefined metric" {
		t.Errorf("error = %v", rec["error"])
	}
	if rec[StepKey] != "residuals" {
		t.Errorf("step = %v", rec[StepKey])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestZerologProviderSetLevel(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelError, false)

	p.GetLoggerWithName("dataset").Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at Error level: %s", buf.String())
	}

	p.SetLevel(LevelInfo)
	p.GetLoggerWithName("dataset").Info("dropped", DroppedKey, 3)
	if !strings.Contains(buf.String(), `"ml.component":"dataset"`) {
		t.Errorf("component missing: %s", buf.String())
	}
}

func TestSlogProviderCloudFormat(t *testing.T) {
	var buf bytes.Buffer
	p := NewSlogProvider(&buf, LevelInfo)

	p.GetLoggerWithName("experiment").Error("Run failed", co2errors.NewValueError("Run", "boom"))

	var rec map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["severity"] != "ERROR" {
		t.Errorf("severity = %v", rec["severity"])
	}
	if rec["message"] != "Run failed" {
		t.Errorf("message = %v", rec["message"])
	}
	if _, ok := rec[StacktraceAttrKey]; !ok {
		t.Errorf("stacktrace missing: %v", rec)
	}
}

func TestSetProviderRoutesWarnings(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	defer func() {
		SetProvider(NewZerologProvider(&bytes.Buffer{}, LevelWarn, true))
		co2errors.SetZerologWarnFunc(nil)
	}()

	co2errors.Warn(co2errors.NewUndefinedMetricWarning("r2", "constant target", 0))

	if !provider.Logger().ContainsMessage("'r2' is ill-defined") {
		t.Error("warning not routed through provider")
	}
	if !provider.Logger().ContainsField(ComponentKey, "warnings") {
		t.Error("warning logger should carry component=warnings")
	}
}
