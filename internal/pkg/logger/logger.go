package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the JSON stdout logger. An unknown level falls back to info.
func InitLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	var logWriter = zapcore.AddSync(os.Stdout)
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		logWriter,
		lvl,
	)
	return zap.New(logCore, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)), nil
}
