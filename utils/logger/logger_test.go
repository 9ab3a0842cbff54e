package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LoggerTestSuite struct {
	suite.Suite
	originalLogger *zap.Logger
	observedLogs   *observer.ObservedLogs
}

func (suite *LoggerTestSuite) SetupSuite() {
	suite.originalLogger = zap.L()
}

func (suite *LoggerTestSuite) TearDownSuite() {
	zap.ReplaceGlobals(suite.originalLogger)
}

func (suite *LoggerTestSuite) SetupTest() {
	core, logs := observer.New(zap.DebugLevel)
	suite.observedLogs = logs
	zap.ReplaceGlobals(zap.New(core))
}

func (suite *LoggerTestSuite) TestGetLogLevelFromString() {
	testCases := []struct {
		name     string
		input    string
		expected zapcore.Level
	}{
		{"debug lowercase", "debug", zapcore.DebugLevel},
		{"info mixed case", "Info", zapcore.InfoLevel},
		{"warn uppercase", "WARN", zapcore.WarnLevel},
		{"error short", "err", zapcore.ErrorLevel},
		{"warning full", "warning", zapcore.WarnLevel},
		{"debug with spaces", "  debug  ", zapcore.DebugLevel},
		{"empty string", "", zapcore.InfoLevel},
		{"invalid level", "invalid", zapcore.InfoLevel},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			assert.Equal(suite.T(), tc.expected, getLogLevelFromString(tc.input))
		})
	}
}

func (suite *LoggerTestSuite) TestNew() {
	testCases := []struct {
		name   string
		config *Config
	}{
		{"json", &Config{Level: "info", Env: "test", ServiceName: "licensectl"}},
		{"console", &Config{Level: "debug", Env: "development", Encoding: "console"}},
		{"unknown encoding falls back to json", &Config{Encoding: "xml"}},
		{"empty config", &Config{}},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			l, err := New(tc.config)
			require.NoError(suite.T(), err)
			require.NotNil(suite.T(), l)
		})
	}
}

func (suite *LoggerTestSuite) TestInit() {
	require.NotPanics(suite.T(), func() {
		Init(&Config{Level: "warn", Env: "test", ServiceName: "licensectl"})
	})
	assert.NotNil(suite.T(), zap.L())
	assert.False(suite.T(), zap.L().Core().Enabled(zapcore.InfoLevel))
}

func (suite *LoggerTestSuite) TestFormattedLogging() {
	LogInfof("user %s refreshed %d times", "a@x.com", 2)
	LogErrorf("plain message")

	logs := suite.observedLogs.TakeAll()
	require.Len(suite.T(), logs, 2)
	assert.Equal(suite.T(), "user a@x.com refreshed 2 times", logs[0].Message)
	assert.Equal(suite.T(), zapcore.ErrorLevel, logs[1].Level)
	assert.Equal(suite.T(), "plain message", logs[1].Message)
}

func (suite *LoggerTestSuite) TestTokenIsRedacted() {
	LogInfo("tokens rotated",
		Token("access_token", "eyJhbGciOiJIUzI1NiJ9.payload.signature"),
		Token("refresh_token", "r1"),
		Token("empty", ""),
	)

	logs := suite.observedLogs.TakeAll()
	require.Len(suite.T(), logs, 1)

	fields := logs[0].ContextMap()
	assert.Equal(suite.T(), "***ture(38)", fields["access_token"])
	assert.Equal(suite.T(), "***(2)", fields["refresh_token"])
	assert.Equal(suite.T(), "", fields["empty"])
	assert.NotContains(suite.T(), fields["access_token"], "payload")
}

func TestLoggerTestSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func BenchmarkLogInfo(b *testing.B) {
	Init(&Config{
		Level:       "info",
		Env:         "benchmark",
		ServiceName: "bench-service",
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		LogInfo("benchmark message", Token("access_token", "abcdefghijkl"))
	}
}
